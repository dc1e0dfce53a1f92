package file

import (
	"context"
	"testing"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowRepository_SaveAndFetch(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())
	ctx := context.Background()

	workflow := &models.Workflow{
		Title: "welcome flow",
		Nodes: map[string]*models.NodeDef{
			"a": {Type: models.NodeTypeManual},
			"b": {Type: models.NodeTypeTelegram, Template: map[string]any{"message": "hi {{name}}"}},
		},
		Connections: map[string][]string{"a": {"b"}},
		TriggerType: models.TriggerTypeManual,
	}

	require.NoError(t, repo.SaveWorkflow(ctx, workflow))
	assert.NotEmpty(t, workflow.ID)
	assert.False(t, workflow.CreatedAt.IsZero())

	fetched, err := repo.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "welcome flow", fetched.Title)
	assert.Equal(t, []string{"b"}, fetched.Connections["a"])
	require.Contains(t, fetched.Nodes, "b")
	assert.Equal(t, models.NodeTypeTelegram, fetched.Nodes["b"].Type)

	all, err := repo.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWorkflowRepository_NotFound(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	_, err := repo.WorkflowByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = repo.DeleteWorkflow(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_RejectsPathTraversal(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	_, err := repo.WorkflowByID(context.Background(), "../escape")
	require.Error(t, err)
	assert.False(t, persistence.IsWorkflowNotFound(err))
}

func TestCredentialRepository_RoundTrip(t *testing.T) {
	repo := NewCredentialRepository(t.TempDir())
	ctx := context.Background()

	credential := &models.Credential{
		Title:    "team bot",
		Platform: models.PlatformTelegram,
		Data:     map[string]string{"apiKey": "token", "chatId": "42"},
	}

	require.NoError(t, repo.SaveCredential(ctx, credential))

	fetched, err := repo.CredentialByID(ctx, credential.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformTelegram, fetched.Platform)

	key, ok := fetched.Field("apiKey")
	assert.True(t, ok)
	assert.Equal(t, "token", key)

	require.NoError(t, repo.DeleteCredential(ctx, credential.ID))

	_, err = repo.CredentialByID(ctx, credential.ID)
	assert.True(t, persistence.IsCredentialNotFound(err))
}
