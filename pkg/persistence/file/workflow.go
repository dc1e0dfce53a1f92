package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	dir string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{dir: filepath.Join(root, "workflows")}
}

func (r *WorkflowRepository) Workflows(_ context.Context) ([]*models.Workflow, error) {
	return listRecords[models.Workflow](r.dir)
}

func (r *WorkflowRepository) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	workflow := &models.Workflow{}
	if err := readRecord(r.dir, id, workflow, persistence.ErrWorkflowNotFound); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *WorkflowRepository) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return writeRecord(r.dir, workflow.ID, workflow)
}

func (r *WorkflowRepository) DeleteWorkflow(_ context.Context, id string) error {
	return deleteRecord(r.dir, id, persistence.ErrWorkflowNotFound)
}
