package file

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
)

// ExecutionRepository handles execution-related file operations. All
// read-modify-write operations are serialized behind a single mutex: the
// file backend has no row locks, and lost updates on concurrent branch
// completions are exactly what the execution store must rule out.
type ExecutionRepository struct {
	dir string
	mu  sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{dir: filepath.Join(root, "executions")}
}

func (r *ExecutionRepository) CreateExecution(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeRecord(r.dir, execution.ID, execution)
}

func (r *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(id)
}

func (r *ExecutionRepository) ExecutionsByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := listRecords[models.Execution](r.dir)
	if err != nil {
		return nil, err
	}

	if workflowID == "" {
		return all, nil
	}

	executions := make([]*models.Execution, 0, len(all))

	for _, execution := range all {
		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}

func (r *ExecutionRepository) CompleteNode(_ context.Context, executionID, nodeID string, result models.NodeResult) (*models.Execution, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(executionID)
	if err != nil {
		return nil, false, err
	}

	if execution.Result.NodeResults == nil {
		execution.Result.NodeResults = make(map[string]models.NodeResult)
	}

	// Idempotency on executionID+nodeID: a redelivered job or a diamond
	// join must not be counted twice.
	if _, done := execution.Result.NodeResults[nodeID]; done {
		return execution, false, nil
	}

	execution.Result.NodeResults[nodeID] = result
	execution.TasksDone++

	if execution.Completed() {
		completedAt := time.Now().UTC()
		execution.Result.CompletedAt = &completedAt
		execution.Status = models.ExecutionStatusCompleted
	}

	if err := writeRecord(r.dir, executionID, execution); err != nil {
		return nil, false, persistence.NewExecutionError("CompleteNode", executionID, nodeID, err)
	}

	return execution, true, nil
}

func (r *ExecutionRepository) PauseAt(_ context.Context, executionID, nodeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(executionID)
	if err != nil {
		return err
	}

	if execution.PausedNodeID == nodeID {
		return nil
	}

	// A node already recorded in NodeResults had its pause resolved; a
	// redelivered suspend job must not park the execution again.
	if _, done := execution.Result.NodeResults[nodeID]; done {
		return nil
	}

	if execution.PausedNodeID != "" {
		return persistence.NewExecutionError("PauseAt", executionID, nodeID, persistence.ErrExecutionAlreadyPaused)
	}

	execution.PausedNodeID = nodeID
	execution.Status = models.ExecutionStatusPaused

	return writeRecord(r.dir, executionID, execution)
}

func (r *ExecutionRepository) ClearPause(_ context.Context, executionID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(executionID)
	if err != nil {
		return "", err
	}

	if execution.PausedNodeID == "" {
		return "", persistence.NewExecutionError("ClearPause", executionID, "", persistence.ErrExecutionNotPaused)
	}

	pausedNodeID := execution.PausedNodeID
	execution.PausedNodeID = ""
	execution.Status = models.ExecutionStatusRunning

	if err := writeRecord(r.dir, executionID, execution); err != nil {
		return "", persistence.NewExecutionError("ClearPause", executionID, pausedNodeID, err)
	}

	return pausedNodeID, nil
}

func (r *ExecutionRepository) MarkFailed(_ context.Context, executionID, nodeID string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(executionID)
	if err != nil {
		return err
	}

	execution.Status = models.ExecutionStatusFailed
	execution.FailedNodeID = nodeID

	if cause != nil {
		execution.Error = cause.Error()
	}

	return writeRecord(r.dir, executionID, execution)
}

func (r *ExecutionRepository) load(id string) (*models.Execution, error) {
	execution := &models.Execution{}
	if err := readRecord(r.dir, id, execution, persistence.ErrExecutionNotFound); err != nil {
		return nil, err
	}

	return execution, nil
}
