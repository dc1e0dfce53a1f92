package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/flowd-io/flowd/pkg/channels/gochannel"
	"github.com/flowd-io/flowd/pkg/channels/kafka"
	"github.com/flowd-io/flowd/pkg/queue"
	"github.com/flowd-io/flowd/pkg/queue/redisqueue"
	"github.com/flowd-io/flowd/pkg/queue/watermillqueue"
)

// NewQueue picks the job queue implementation from the provider URL:
// redis:// uses the Redis list queue, "kafka" the Kafka channel, and
// "memory" the in-process channel (single binary deployments only).
func NewQueue(ctx context.Context, providerURL, consumerID string, logger *slog.Logger) queue.JobQueue {
	switch {
	case strings.HasPrefix(providerURL, "redis://"), strings.HasPrefix(providerURL, "rediss://"):
		q, err := redisqueue.NewQueue(ctx, providerURL, consumerID, logger)
		if err != nil {
			panic(fmt.Errorf("failed to create redis queue: %w", err))
		}

		return q
	case providerURL == "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "flowd")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return watermillqueue.NewQueue(pub, sub, logger)
	case providerURL == "memory":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return watermillqueue.NewQueue(pub, sub, logger)
	default:
		panic("Unsupported queue provider: " + providerURL)
	}
}
