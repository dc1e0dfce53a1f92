// Package engine implements queue-driven workflow execution: dispatching
// runs, the worker loop that walks the graph one job at a time, and the
// resume path for paused executions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/otelhelper"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/flowd-io/flowd/pkg/queue"
	"github.com/flowd-io/flowd/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const defaultNodeTimeout = 30 * time.Second

// Engine owns the queue, the stores and the runner registry. One Engine
// value serves both roles: the API process calls Dispatch and Resume, the
// worker process calls Start.
type Engine struct {
	persistence persistence.Persistence
	jobQueue    queue.JobQueue
	registry    *registry.Registry
	deps        protocol.Dependencies
	logger      *slog.Logger
	tracer      trace.Tracer
	nodeTimeout time.Duration
	failFast    bool
}

type Option func(*Engine)

// WithNodeTimeout bounds each runner invocation.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.nodeTimeout = d
	}
}

// WithFailFast marks the execution failed when a node dead-ends instead of
// leaving it short of totalTasks forever.
func WithFailFast(enabled bool) Option {
	return func(e *Engine) {
		e.failFast = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func NewEngine(p persistence.Persistence, q queue.JobQueue, r *registry.Registry, deps protocol.Dependencies, opts ...Option) *Engine {
	e := &Engine{
		persistence: p,
		jobQueue:    q,
		registry:    r,
		deps:        deps,
		logger:      slog.Default(),
		tracer:      tracenoop.NewTracerProvider().Tracer("engine"),
		nodeTimeout: defaultNodeTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("module", "engine")

	return e
}

// Dispatch starts one run of a workflow. It snapshots the graph, creates
// the execution record and enqueues one job per root node carrying the
// trigger payload as initial context.
//
// totalTasks is the number of distinct node ids reachable from the roots
// at dispatch time, roots included. Completion detection compares
// tasksDone against this fixed count.
func (e *Engine) Dispatch(ctx context.Context, workflowID string, triggerPayload map[string]any) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "dispatch",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	workflow, err := e.persistence.WorkflowRepository().WorkflowByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	snapshot := workflow.Snapshot()

	roots := snapshot.Roots(workflow.TriggerType)
	if len(roots) == 0 {
		err := fmt.Errorf("workflow %s has no entry nodes", workflowID)
		otelhelper.SetError(span, err)

		return "", err
	}

	totalTasks := snapshot.CountReachable(roots)

	execution := models.NewExecution(workflow.ID, totalTasks, triggerPayload)
	if err := e.persistence.ExecutionRepository().CreateExecution(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to create execution: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, execution.ID))

	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)
	logger.InfoContext(ctx, "Dispatching workflow", "roots", roots, "total_tasks", totalTasks)

	for _, rootID := range roots {
		node, ok := snapshot.Node(rootID)
		if !ok {
			continue
		}

		job := models.NewJob(execution.ID, snapshot, rootID, node, triggerPayload)
		if err := e.jobQueue.Enqueue(ctx, job); err != nil {
			otelhelper.SetError(span, err)

			return "", fmt.Errorf("failed to enqueue root job %s: %w", job.ID, err)
		}
	}

	return execution.ID, nil
}

// Start runs the worker loop until the context is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.InfoContext(ctx, "Starting worker loop")

	return e.jobQueue.Consume(ctx, e.handleJob)
}

// handleJob processes one dequeued job. Returning an error requeues the
// job, so only infrastructure failures (stores, enqueues, a held pause
// slot) propagate; runner failures dead-end the branch instead.
func (e *Engine) handleJob(ctx context.Context, job *models.Job) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "handle_job",
		attribute.String(otelhelper.JobIDKey, job.ID),
		attribute.String(otelhelper.ExecutionIDKey, job.ExecutionID),
		attribute.String(otelhelper.NodeIDKey, job.NodeID),
		attribute.String(otelhelper.NodeTypeKey, job.NodeType))
	defer span.End()

	logger := e.logger.With(
		"job_id", job.ID,
		"execution_id", job.ExecutionID,
		"node_id", job.NodeID,
		"node_type", job.NodeType,
	)

	if !e.registry.Registered(job.NodeType) {
		// Terminal for this branch: the execution record stays untouched.
		logger.ErrorContext(ctx, "Unknown node type, dropping job")

		return nil
	}

	runner, err := e.registry.Create(ctx, job.NodeType, job.NodeID, job.Node.Template, e.deps)
	if err != nil {
		return e.deadEnd(ctx, logger, span, job, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.nodeTimeout)
	defer cancel()

	outcome, err := runner.Run(runCtx, protocol.RunContext{
		ExecutionID:  job.ExecutionID,
		WorkflowID:   job.WorkflowID,
		NodeID:       job.NodeID,
		CredentialID: job.CredentialID,
		Data:         job.Context,
		Logger:       logger,
	})
	if err != nil {
		return e.deadEnd(ctx, logger, span, job, err)
	}

	if outcome.Suspended {
		return e.pause(ctx, logger, span, job)
	}

	execution, applied, err := e.persistence.ExecutionRepository().CompleteNode(ctx, job.ExecutionID, job.NodeID, models.NodeResult{
		Result:      outcome.Output,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrExecutionNotFound) {
			logger.ErrorContext(ctx, "Execution record gone, dropping job")

			return nil
		}

		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to record completion of node %s: %w", job.NodeID, err)
	}

	if !applied {
		// Redelivered job: the node was already counted. The successor
		// enqueues below still run, their own completions dedupe the
		// same way.
		logger.DebugContext(ctx, "Node already completed, skipping bookkeeping")
	}

	if execution.Completed() {
		logger.InfoContext(ctx, "Execution completed",
			"tasks_done", execution.TasksDone, "total_tasks", execution.TotalTasks)
	}

	return e.enqueueSuccessors(ctx, logger, job.ExecutionID, job.Graph, job.NodeID, mergeContext(job.Context, outcome.Output))
}

// pause parks the execution at the job's node. A pause already held by a
// different node requeues the job until the first pause resolves.
func (e *Engine) pause(ctx context.Context, logger *slog.Logger, span trace.Span, job *models.Job) error {
	err := e.persistence.ExecutionRepository().PauseAt(ctx, job.ExecutionID, job.NodeID)
	if err != nil {
		if errors.Is(err, persistence.ErrExecutionAlreadyPaused) {
			logger.WarnContext(ctx, "Pause slot held by another node, requeueing job")

			return err
		}

		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to pause execution at node %s: %w", job.NodeID, err)
	}

	logger.InfoContext(ctx, "Execution paused, waiting for input")

	return nil
}

// deadEnd handles a failed runner invocation. The node is never marked
// complete and its successors are never enqueued. Without FailFast the
// execution stays running, permanently short of totalTasks.
func (e *Engine) deadEnd(ctx context.Context, logger *slog.Logger, span trace.Span, job *models.Job, cause error) error {
	otelhelper.SetError(span, cause)
	logger.ErrorContext(ctx, "Node run failed, branch dead-ends", "error", cause)

	if !e.failFast {
		return nil
	}

	err := e.persistence.ExecutionRepository().MarkFailed(ctx, job.ExecutionID, job.NodeID, cause)
	if err != nil && !errors.Is(err, persistence.ErrExecutionNotFound) {
		return fmt.Errorf("failed to mark execution %s failed: %w", job.ExecutionID, err)
	}

	return nil
}

// Resume completes the paused node with the submitted data as its result
// and enqueues its successors. Exactly one of two racing resume calls
// succeeds; the loser gets ErrExecutionNotPaused.
func (e *Engine) Resume(ctx context.Context, executionID string, submittedData map[string]any) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "resume",
		attribute.String(otelhelper.ExecutionIDKey, executionID))
	defer span.End()

	pausedNodeID, err := e.persistence.ExecutionRepository().ClearPause(ctx, executionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	logger := e.logger.With("execution_id", executionID, "node_id", pausedNodeID)
	logger.InfoContext(ctx, "Resuming execution")

	execution, _, err := e.persistence.ExecutionRepository().CompleteNode(ctx, executionID, pausedNodeID, models.NodeResult{
		Result:      submittedData,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to record result of resumed node %s: %w", pausedNodeID, err)
	}

	workflow, err := e.persistence.WorkflowRepository().WorkflowByID(ctx, execution.WorkflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	snapshot := workflow.Snapshot()
	context := mergeContext(execution.AccumulatedContext(), submittedData)

	return e.enqueueSuccessors(ctx, logger, executionID, snapshot, pausedNodeID, context)
}

// enqueueSuccessors builds one job per successor of the given node,
// resolving definitions from the graph snapshot. Dangling successor ids
// are skipped with a warning.
func (e *Engine) enqueueSuccessors(ctx context.Context, logger *slog.Logger, executionID string, graph *models.GraphSnapshot, nodeID string, context map[string]any) error {
	for _, successorID := range graph.Successors(nodeID) {
		node, ok := graph.Node(successorID)
		if !ok {
			logger.WarnContext(ctx, "Skipping dangling successor", "successor_id", successorID)

			continue
		}

		job := models.NewJob(executionID, graph, successorID, node, context)
		if err := e.jobQueue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("failed to enqueue successor job %s: %w", job.ID, err)
		}

		logger.DebugContext(ctx, "Enqueued successor job", "successor_id", successorID)
	}

	return nil
}

func mergeContext(base, overlay map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overlay))

	for k, v := range base {
		merged[k] = v
	}

	for k, v := range overlay {
		merged[k] = v
	}

	return merged
}
