package file

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecution(t *testing.T, repo *ExecutionRepository, totalTasks int) *models.Execution {
	t.Helper()

	execution := models.NewExecution("wf-1", totalTasks, map[string]any{"name": "Sam"})
	require.NoError(t, repo.CreateExecution(context.Background(), execution))

	return execution
}

func TestExecutionRepository_CompleteNode(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())
	ctx := context.Background()
	execution := newTestExecution(t, repo, 2)

	updated, applied, err := repo.CompleteNode(ctx, execution.ID, "a", models.NodeResult{
		Result:      map[string]any{"sent": true},
		CompletedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 1, updated.TasksDone)
	assert.Equal(t, models.ExecutionStatusRunning, updated.Status)

	updated, applied, err = repo.CompleteNode(ctx, execution.ID, "b", models.NodeResult{
		CompletedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 2, updated.TasksDone)
	assert.Equal(t, models.ExecutionStatusCompleted, updated.Status)
	require.NotNil(t, updated.Result.CompletedAt)
}

func TestExecutionRepository_CompleteNode_Idempotent(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())
	ctx := context.Background()
	execution := newTestExecution(t, repo, 2)

	result := models.NodeResult{Result: map[string]any{"sent": true}, CompletedAt: time.Now().UTC()}

	_, applied, err := repo.CompleteNode(ctx, execution.ID, "a", result)
	require.NoError(t, err)
	assert.True(t, applied)

	// Simulated queue redelivery of the same job.
	updated, applied, err := repo.CompleteNode(ctx, execution.ID, "a", result)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1, updated.TasksDone)
}

func TestExecutionRepository_CompleteNode_ConcurrentBranches(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())
	ctx := context.Background()

	const branches = 16

	execution := newTestExecution(t, repo, branches)

	var wg sync.WaitGroup

	for i := range branches {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			nodeID := string(rune('a' + n))
			_, _, err := repo.CompleteNode(ctx, execution.ID, nodeID, models.NodeResult{
				CompletedAt: time.Now().UTC(),
			})
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	updated, err := repo.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, branches, updated.TasksDone)
	assert.Equal(t, models.ExecutionStatusCompleted, updated.Status)
}

func TestExecutionRepository_PauseAndClearPause(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())
	ctx := context.Background()
	execution := newTestExecution(t, repo, 3)

	require.NoError(t, repo.PauseAt(ctx, execution.ID, "form-1"))

	// Redelivery of the same form job is a no-op.
	require.NoError(t, repo.PauseAt(ctx, execution.ID, "form-1"))

	// A different branch cannot claim the pause slot.
	err := repo.PauseAt(ctx, execution.ID, "form-2")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionAlreadyPaused(err))

	paused, err := repo.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPaused, paused.Status)
	assert.Equal(t, "form-1", paused.PausedNodeID)

	nodeID, err := repo.ClearPause(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, "form-1", nodeID)

	// Second resume loses the race.
	_, err = repo.ClearPause(ctx, execution.ID)
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotPaused(err))
}

func TestExecutionRepository_PauseAt_ResolvedNodeIsNoOp(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())
	ctx := context.Background()
	execution := newTestExecution(t, repo, 1)

	// The node's pause was already resolved and its result recorded.
	_, applied, err := repo.CompleteNode(ctx, execution.ID, "form-1", models.NodeResult{
		Result:      map[string]any{"approved": true},
		CompletedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, applied)

	// A redelivered suspend job for that node must not re-pause.
	require.NoError(t, repo.PauseAt(ctx, execution.ID, "form-1"))

	stored, err := repo.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Empty(t, stored.PausedNodeID)
}

func TestExecutionRepository_NotFound(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())

	_, err := repo.ExecutionByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepository_MarkFailed(t *testing.T) {
	repo := NewExecutionRepository(t.TempDir())
	ctx := context.Background()
	execution := newTestExecution(t, repo, 2)

	require.NoError(t, repo.MarkFailed(ctx, execution.ID, "b", assert.AnError))

	failed, err := repo.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, failed.Status)
	assert.Equal(t, "b", failed.FailedNodeID)
	assert.NotEmpty(t, failed.Error)
}
