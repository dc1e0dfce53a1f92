package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/flowd-io/flowd/pkg/channels/gochannel"
	"github.com/flowd-io/flowd/pkg/credentials"
	"github.com/flowd-io/flowd/pkg/engine"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence/file"
	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/flowd-io/flowd/pkg/queue/watermillqueue"
	"github.com/flowd-io/flowd/pkg/registry"
	"github.com/flowd-io/flowd/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	app    *fiber.App
	store  *file.Persistence
	engine *engine.Engine
}

// setupTestAPI wires the full stack: file persistence, in-memory queue, a
// running worker loop, and the fiber app over them.
func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	publisher, subscriber, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	jobQueue := watermillqueue.NewQueue(publisher, subscriber, slog.Default())
	t.Cleanup(func() { _ = jobQueue.Close() })

	reg := registry.NewRegistry(slog.Default())
	registry.RegisterDefaultRunners(reg)

	deps := protocol.Dependencies{
		Credentials: credentials.NewResolver(store.CredentialRepository()),
	}

	eng := engine.NewEngine(store, jobQueue, reg, deps)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = eng.Start(ctx) }()

	// Let the worker subscribe before any dispatch.
	time.Sleep(100 * time.Millisecond)

	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewAPIHandlers(eng, store, reg, validate)

	return &testAPI{
		app:    web.NewApp(handlers),
		store:  store,
		engine: eng,
	}
}

func (api *testAPI) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := api.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func (api *testAPI) saveWorkflow(t *testing.T, nodes map[string]*models.NodeDef, connections map[string][]string) string {
	t.Helper()

	workflow := &models.Workflow{
		Title:       "test workflow",
		Enabled:     true,
		Nodes:       nodes,
		Connections: connections,
		TriggerType: models.TriggerTypeManual,
	}
	require.NoError(t, api.store.WorkflowRepository().SaveWorkflow(context.Background(), workflow))

	return workflow.ID
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	api := setupTestAPI(t)

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "successful creation",
			requestBody: web.CreateWorkflowRequest{
				Title:       "Welcome flow",
				TriggerType: models.TriggerTypeManual,
				Nodes: map[string]*models.NodeDef{
					"start": {Type: models.NodeTypeManual},
				},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "title too short",
			requestBody: web.CreateWorkflowRequest{
				Title:       "ab",
				TriggerType: models.TriggerTypeManual,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "invalid trigger type",
			requestBody: map[string]any{
				"title":        "Welcome flow",
				"trigger_type": "cron",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.request(t, http.MethodPost, "/workflows/", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				workflow := decodeBody[models.Workflow](t, resp)
				assert.Equal(t, "Welcome flow", workflow.Title)
				assert.NotEmpty(t, workflow.ID)
			}
		})
	}
}

func TestAPIHandlers_GetWorkflow_NotFound(t *testing.T) {
	api := setupTestAPI(t)

	resp := api.request(t, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ExecuteWorkflow(t *testing.T) {
	api := setupTestAPI(t)

	workflowID := api.saveWorkflow(t,
		map[string]*models.NodeDef{"start": {Type: models.NodeTypeManual}},
		nil,
	)

	resp := api.request(t, http.MethodPost, "/workflows/"+workflowID+"/execute",
		web.ExecuteRequest{Payload: map[string]any{"name": "Sam"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	result := decodeBody[web.ExecuteResponse](t, resp)
	require.NotEmpty(t, result.ExecutionID)

	execution, err := api.store.ExecutionRepository().ExecutionByID(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, workflowID, execution.WorkflowID)
	assert.Equal(t, "Sam", execution.Result.TriggerPayload["name"])
}

func TestAPIHandlers_ExecuteWorkflow_NotFound(t *testing.T) {
	api := setupTestAPI(t)

	resp := api.request(t, http.MethodPost, "/workflows/missing/execute", web.ExecuteRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_WebhookTrigger_CapturesRequest(t *testing.T) {
	api := setupTestAPI(t)

	workflow := &models.Workflow{
		Title:       "webhook workflow",
		Enabled:     true,
		Nodes:       map[string]*models.NodeDef{"hook": {Type: models.NodeTypeWebhook}},
		TriggerType: models.TriggerTypeWebhook,
	}
	require.NoError(t, api.store.WorkflowRepository().SaveWorkflow(context.Background(), workflow))

	payload, err := json.Marshal(map[string]any{"order": "A-42"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+workflow.ID+"?source=shop", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", "sig-123")

	resp, err := api.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	executionID := decodeBody[web.ExecuteResponse](t, resp).ExecutionID

	require.Eventually(t, func() bool {
		execution, err := api.store.ExecutionRepository().ExecutionByID(context.Background(), executionID)

		return err == nil && execution.Status == models.ExecutionStatusCompleted
	}, 5*time.Second, 20*time.Millisecond, "execution never completed")

	execution, err := api.store.ExecutionRepository().ExecutionByID(context.Background(), executionID)
	require.NoError(t, err)

	// The webhook node passes the trigger payload through as its result.
	result := execution.Result.NodeResults["hook"].Result

	headers, ok := result["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sig-123", headers["X-Signature"])

	body, ok := result["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A-42", body["order"])

	queryParams, ok := result["query_params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "shop", queryParams["source"])
}

func TestAPIHandlers_ResumeFlow(t *testing.T) {
	api := setupTestAPI(t)

	workflowID := api.saveWorkflow(t,
		map[string]*models.NodeDef{
			"start":    {Type: models.NodeTypeManual},
			"approval": {Type: models.NodeTypeForm},
		},
		map[string][]string{"start": {"approval"}},
	)

	resp := api.request(t, http.MethodPost, "/workflows/"+workflowID+"/execute",
		web.ExecuteRequest{Payload: map[string]any{"name": "Sam"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	executionID := decodeBody[web.ExecuteResponse](t, resp).ExecutionID

	// Wait for the worker to reach the form node.
	require.Eventually(t, func() bool {
		execution, err := api.store.ExecutionRepository().ExecutionByID(context.Background(), executionID)

		return err == nil && execution.Status == models.ExecutionStatusPaused
	}, 5*time.Second, 20*time.Millisecond, "execution never paused")

	getResp := api.request(t, http.MethodGet, "/executions/"+executionID, nil)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	projection := decodeBody[web.ExecutionResponse](t, getResp)
	assert.Equal(t, models.ExecutionStatusPaused, projection.Status)
	assert.Equal(t, "approval", projection.PausedNodeID)

	resumeResp := api.request(t, http.MethodPost, "/executions/"+executionID+"/resume",
		map[string]any{"approved": true})
	assert.Equal(t, http.StatusNoContent, resumeResp.StatusCode)

	// A second resume hits the cleared pause slot.
	again := api.request(t, http.MethodPost, "/executions/"+executionID+"/resume",
		map[string]any{"approved": false})
	assert.Equal(t, http.StatusConflict, again.StatusCode)
}

func TestAPIHandlers_ResumeExecution_NotFound(t *testing.T) {
	api := setupTestAPI(t)

	resp := api.request(t, http.MethodPost, "/executions/missing/resume", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_Credentials(t *testing.T) {
	api := setupTestAPI(t)

	resp := api.request(t, http.MethodPost, "/credentials/", web.CreateCredentialRequest{
		Title:    "team bot",
		Platform: models.PlatformTelegram,
		Data:     map[string]string{"chatId": "42", "apiKey": "secret-token"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[web.CredentialResponse](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"apiKey", "chatId"}, created.Fields)

	// The secret payload must never be echoed back.
	listResp := api.request(t, http.MethodGet, "/credentials/", nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var raw bytes.Buffer
	_, err := raw.ReadFrom(listResp.Body)
	require.NoError(t, err)
	assert.NotContains(t, raw.String(), "secret-token")

	deleteResp := api.request(t, http.MethodDelete, "/credentials/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, deleteResp.StatusCode)

	missingResp := api.request(t, http.MethodDelete, "/credentials/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)
}

func TestAPIHandlers_GetNodeTypes(t *testing.T) {
	api := setupTestAPI(t)

	resp := api.request(t, http.MethodGet, "/node-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	nodeTypes := decodeBody[[]web.NodeTypeResponse](t, resp)
	require.Len(t, nodeTypes, 7)

	types := make(map[string]bool, len(nodeTypes))
	for _, nt := range nodeTypes {
		types[nt.Type] = true
	}

	for _, expected := range []string{"manual", "webhook", "telegram", "email", "agent", "form", "waitForReply"} {
		assert.True(t, types[expected], "missing node type %s", expected)
	}
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	api := setupTestAPI(t)

	resp := api.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
