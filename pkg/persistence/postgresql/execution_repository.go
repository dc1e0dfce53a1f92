package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations. The
// mutating operations lock the execution row (SELECT ... FOR UPDATE) so
// concurrent branch completions and resume calls serialize on the record
// instead of overwriting each other.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `id, workflow_id, status, tasks_done, total_tasks,
	COALESCE(paused_node_id, ''), COALESCE(failed_node_id, ''), COALESCE(error, ''), result, created_at`

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	resultJSON, err := json.Marshal(execution.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, tasks_done, total_tasks, paused_node_id, failed_node_id, error, result, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Status,
		execution.TasksDone,
		execution.TotalTasks,
		execution.PausedNodeID,
		execution.FailedNodeID,
		execution.Error,
		resultJSON,
		execution.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution %s: %w", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, err
	}

	return execution, nil
}

func (r *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions`
	args := []any{}

	if workflowID != "" {
		query += ` WHERE workflow_id = $1`
		args = append(args, workflowID)
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var executions []*models.Execution

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) CompleteNode(ctx context.Context, executionID, nodeID string, result models.NodeResult) (*models.Execution, bool, error) {
	var (
		execution *models.Execution
		applied   bool
	)

	err := r.withLockedExecution(ctx, "CompleteNode", executionID, func(tx *sql.Tx, locked *models.Execution) error {
		execution = locked

		if locked.Result.NodeResults == nil {
			locked.Result.NodeResults = make(map[string]models.NodeResult)
		}

		if _, done := locked.Result.NodeResults[nodeID]; done {
			return nil
		}

		applied = true
		locked.Result.NodeResults[nodeID] = result
		locked.TasksDone++

		if locked.Completed() {
			completedAt := time.Now().UTC()
			locked.Result.CompletedAt = &completedAt
			locked.Status = models.ExecutionStatusCompleted
		}

		return r.update(ctx, tx, locked)
	})
	if err != nil {
		return nil, false, persistence.NewExecutionError("CompleteNode", executionID, nodeID, err)
	}

	return execution, applied, nil
}

func (r *ExecutionRepository) PauseAt(ctx context.Context, executionID, nodeID string) error {
	err := r.withLockedExecution(ctx, "PauseAt", executionID, func(tx *sql.Tx, locked *models.Execution) error {
		if locked.PausedNodeID == nodeID {
			return nil
		}

		// A node already recorded in NodeResults had its pause resolved; a
		// redelivered suspend job must not park the execution again.
		if _, done := locked.Result.NodeResults[nodeID]; done {
			return nil
		}

		if locked.PausedNodeID != "" {
			return persistence.ErrExecutionAlreadyPaused
		}

		locked.PausedNodeID = nodeID
		locked.Status = models.ExecutionStatusPaused

		return r.update(ctx, tx, locked)
	})
	if err != nil {
		return persistence.NewExecutionError("PauseAt", executionID, nodeID, err)
	}

	return nil
}

func (r *ExecutionRepository) ClearPause(ctx context.Context, executionID string) (string, error) {
	var pausedNodeID string

	err := r.withLockedExecution(ctx, "ClearPause", executionID, func(tx *sql.Tx, locked *models.Execution) error {
		if locked.PausedNodeID == "" {
			return persistence.ErrExecutionNotPaused
		}

		pausedNodeID = locked.PausedNodeID
		locked.PausedNodeID = ""
		locked.Status = models.ExecutionStatusRunning

		return r.update(ctx, tx, locked)
	})
	if err != nil {
		return "", persistence.NewExecutionError("ClearPause", executionID, "", err)
	}

	return pausedNodeID, nil
}

func (r *ExecutionRepository) MarkFailed(ctx context.Context, executionID, nodeID string, cause error) error {
	err := r.withLockedExecution(ctx, "MarkFailed", executionID, func(tx *sql.Tx, locked *models.Execution) error {
		locked.Status = models.ExecutionStatusFailed
		locked.FailedNodeID = nodeID

		if cause != nil {
			locked.Error = cause.Error()
		}

		return r.update(ctx, tx, locked)
	})
	if err != nil {
		return persistence.NewExecutionError("MarkFailed", executionID, nodeID, err)
	}

	return nil
}

// withLockedExecution runs fn with the execution row locked inside a
// transaction.
func (r *ExecutionRepository) withLockedExecution(ctx context.Context, op, executionID string, fn func(tx *sql.Tx, execution *models.Execution) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1 FOR UPDATE`

	execution, err := scanExecution(tx.QueryRowContext(ctx, query, executionID))
	if err != nil {
		_ = tx.Rollback()

		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrExecutionNotFound
		}

		return err
	}

	if err := fn(tx, execution); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", op, err)
	}

	return nil
}

func (r *ExecutionRepository) update(ctx context.Context, tx *sql.Tx, execution *models.Execution) error {
	resultJSON, err := json.Marshal(execution.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2,
			tasks_done = $3,
			paused_node_id = NULLIF($4, ''),
			failed_node_id = NULLIF($5, ''),
			error = NULLIF($6, ''),
			result = $7
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		execution.TasksDone,
		execution.PausedNodeID,
		execution.FailedNodeID,
		execution.Error,
		resultJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", execution.ID, err)
	}

	return nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution  models.Execution
		resultJSON []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Status,
		&execution.TasksDone,
		&execution.TotalTasks,
		&execution.PausedNodeID,
		&execution.FailedNodeID,
		&execution.Error,
		&resultJSON,
		&execution.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	if err := json.Unmarshal(resultJSON, &execution.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result for execution %s: %w", execution.ID, err)
	}

	return &execution, nil
}
