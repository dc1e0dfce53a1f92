// Package persistence provides the data storage abstraction layer for
// workflows, executions and credentials.
package persistence

import (
	"context"

	"github.com/flowd-io/flowd/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	CredentialRepository() CredentialRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type WorkflowRepository interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error
}

// ExecutionRepository persists per-run progress. The mutating operations
// are the engine's only shared-state writes and must be atomic
// read-modify-write: concurrent completions of sibling branches, or a
// resume racing a worker, must not lose updates.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.Execution) error
	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	// CompleteNode records a node result and increments TasksDone, marking
	// the execution completed when the count reaches TotalTasks. The write
	// is idempotent on node id: a duplicate completion (queue redelivery,
	// diamond join) returns applied=false and leaves the record unchanged.
	CompleteNode(ctx context.Context, executionID, nodeID string, result models.NodeResult) (execution *models.Execution, applied bool, err error)

	// PauseAt sets the paused node id if no pause is currently held. Setting
	// the same node id again is a no-op (job redelivery); a different node id
	// fails with ErrExecutionAlreadyPaused.
	PauseAt(ctx context.Context, executionID, nodeID string) error

	// ClearPause atomically swaps the paused node id back to empty and
	// returns it. A non-paused execution fails with ErrExecutionNotPaused,
	// so of two racing resume calls exactly one succeeds.
	ClearPause(ctx context.Context, executionID string) (pausedNodeID string, err error)

	// MarkFailed flags the execution failed, recording the node that
	// dead-ended it.
	MarkFailed(ctx context.Context, executionID, nodeID string, cause error) error
}

type CredentialRepository interface {
	Credentials(ctx context.Context) ([]*models.Credential, error)
	CredentialByID(ctx context.Context, id string) (*models.Credential, error)
	SaveCredential(ctx context.Context, credential *models.Credential) error
	DeleteCredential(ctx context.Context, id string) error
}
