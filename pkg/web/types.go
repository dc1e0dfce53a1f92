// Package web provides HTTP request and response types for the engine API.
package web

import (
	"sort"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Title       string                     `json:"title"        validate:"required,min=3"`
	TriggerType models.TriggerType         `json:"trigger_type" validate:"required,oneof=manual webhook"`
	Enabled     bool                       `json:"enabled"`
	Nodes       map[string]*models.NodeDef `json:"nodes"`
	Connections map[string][]string        `json:"connections"`
}

// UpdateWorkflowRequest represents the request body for updating a workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Title       *string                    `json:"title,omitempty"        validate:"omitempty,min=3"`
	TriggerType *models.TriggerType        `json:"trigger_type,omitempty" validate:"omitempty,oneof=manual webhook"`
	Enabled     *bool                      `json:"enabled,omitempty"`
	Nodes       map[string]*models.NodeDef `json:"nodes,omitempty"`
	Connections map[string][]string        `json:"connections,omitempty"`
}

// ExecuteRequest carries the trigger payload for a manual execution.
type ExecuteRequest struct {
	Payload map[string]any `json:"payload"`
}

// ExecuteResponse returns the id of the created execution.
type ExecuteResponse struct {
	ExecutionID string `json:"execution_id"`
}

// ExecutionResponse is the read-only projection of an execution record.
type ExecutionResponse struct {
	ID           string                 `json:"id"`
	WorkflowID   string                 `json:"workflow_id"`
	Status       models.ExecutionStatus `json:"status"`
	TasksDone    int                    `json:"tasks_done"`
	TotalTasks   int                    `json:"total_tasks"`
	PausedNodeID string                 `json:"paused_node_id,omitempty"`
	FailedNodeID string                 `json:"failed_node_id,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Result       models.ExecutionResult `json:"result"`
	CreatedAt    time.Time              `json:"created_at"`
}

// TransformExecutionResponse projects an execution record for API consumers.
func TransformExecutionResponse(execution *models.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:           execution.ID,
		WorkflowID:   execution.WorkflowID,
		Status:       execution.Status,
		TasksDone:    execution.TasksDone,
		TotalTasks:   execution.TotalTasks,
		PausedNodeID: execution.PausedNodeID,
		FailedNodeID: execution.FailedNodeID,
		Error:        execution.Error,
		Result:       execution.Result,
		CreatedAt:    execution.CreatedAt,
	}
}

// CreateCredentialRequest represents the request body for storing a credential.
type CreateCredentialRequest struct {
	Title    string            `json:"title"    validate:"required,min=3"`
	Platform models.Platform   `json:"platform" validate:"required,oneof=telegram resend gemini"`
	Data     map[string]string `json:"data"     validate:"required"`
}

// CredentialResponse never echoes the secret payload back; only field names
// are listed so the editor can show what the credential carries.
type CredentialResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Platform  models.Platform `json:"platform"`
	Fields    []string        `json:"fields"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransformCredentialResponse redacts a credential for API consumers.
func TransformCredentialResponse(credential *models.Credential) CredentialResponse {
	fields := make([]string, 0, len(credential.Data))
	for name := range credential.Data {
		fields = append(fields, name)
	}

	sort.Strings(fields)

	return CredentialResponse{
		ID:        credential.ID,
		Title:     credential.Title,
		Platform:  credential.Platform,
		Fields:    fields,
		CreatedAt: credential.CreatedAt,
	}
}

// NodeTypeResponse describes one registered runner for the editor palette.
type NodeTypeResponse struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}
