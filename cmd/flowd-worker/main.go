package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/flowd-io/flowd/pkg/cmd"
	"github.com/flowd-io/flowd/pkg/credentials"
	"github.com/flowd-io/flowd/pkg/engine"
	"github.com/flowd-io/flowd/pkg/log"
	"github.com/flowd-io/flowd/pkg/otelhelper"
	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowd-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute workflow jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "queue-url",
				Usage:    "Job queue provider (redis://..., kafka, memory)",
				Required: true,
				Sources:  cli.EnvVars("QUEUE_URL"),
			},
			&cli.BoolFlag{
				Name:    "fail-fast",
				Usage:   "Mark the whole execution failed when a node fails",
				Value:   false,
				Sources: cli.EnvVars("FAIL_FAST"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("flowd-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing flowd worker")

			registry := cmd.NewRegistry(logger)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			jobQueue := cmd.NewQueue(ctx, command.String("queue-url"), workerID, logger)
			defer func() {
				err := jobQueue.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close job queue", "error", err)
				}
			}()

			tracer, err := otelhelper.NewTracer(ctx, "flowd-worker")
			if err != nil {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			}

			deps := protocol.Dependencies{
				Credentials: credentials.NewResolver(persistence.CredentialRepository()),
				HTTPClient:  &http.Client{Timeout: 30 * time.Second},
			}

			opts := []engine.Option{
				engine.WithLogger(logger),
				engine.WithFailFast(command.Bool("fail-fast")),
			}
			if tracer != nil {
				opts = append(opts, engine.WithTracer(tracer))
			}

			eng := engine.NewEngine(persistence, jobQueue, registry, deps, opts...)

			err = eng.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
