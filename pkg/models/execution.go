package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// NodeResult is the recorded outcome of a single node execution.
type NodeResult struct {
	Result      map[string]any `json:"result"`
	CompletedAt time.Time      `json:"completed_at"`
}

// ExecutionResult accumulates per-node results for one run. NodeResults is
// keyed by node id and doubles as the idempotency record for completion
// bookkeeping: a node id present here has already been counted.
type ExecutionResult struct {
	TriggerPayload map[string]any        `json:"trigger_payload,omitempty"`
	NodeResults    map[string]NodeResult `json:"node_results"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
}

// Execution tracks the progress of one run of a workflow.
type Execution struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"  validate:"required"`
	Status       ExecutionStatus `json:"status"`
	TasksDone    int             `json:"tasks_done"`
	TotalTasks   int             `json:"total_tasks"`
	PausedNodeID string          `json:"paused_node_id,omitempty"`
	FailedNodeID string          `json:"failed_node_id,omitempty"`
	Error        string          `json:"error,omitempty"`
	Result       ExecutionResult `json:"result"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewExecution creates a running execution record for a freshly dispatched
// workflow run.
func NewExecution(workflowID string, totalTasks int, triggerPayload map[string]any) *Execution {
	return &Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Status:     ExecutionStatusRunning,
		TasksDone:  0,
		TotalTasks: totalTasks,
		Result: ExecutionResult{
			TriggerPayload: triggerPayload,
			NodeResults:    make(map[string]NodeResult),
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Completed reports whether every counted task has finished.
func (e *Execution) Completed() bool {
	return e.TasksDone >= e.TotalTasks
}

// AccumulatedContext rebuilds the run context from the recorded node
// results, merged in completion order so the most recent result wins on
// key collision.
func (e *Execution) AccumulatedContext() map[string]any {
	type entry struct {
		at     time.Time
		result map[string]any
	}

	ordered := make([]entry, 0, len(e.Result.NodeResults))
	for _, nr := range e.Result.NodeResults {
		ordered = append(ordered, entry{at: nr.CompletedAt, result: nr.Result})
	}

	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].at.Before(ordered[j-1].at); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	context := make(map[string]any)

	for k, v := range e.Result.TriggerPayload {
		context[k] = v
	}

	for _, ent := range ordered {
		for k, v := range ent.result {
			context[k] = v
		}
	}

	return context
}
