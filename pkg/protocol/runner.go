// Package protocol defines the contracts between the engine and node runners.
package protocol

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/flowd-io/flowd/pkg/models"
)

// RunContext carries everything a runner needs for one node execution.
type RunContext struct {
	ExecutionID  string
	WorkflowID   string
	NodeID       string
	CredentialID string
	// Data is the accumulated context: trigger payload merged with the
	// outputs of every completed ancestor node.
	Data   map[string]any
	Logger *slog.Logger
}

// Outcome is the result of running a node. A suspended outcome pauses the
// execution at this node instead of completing it.
type Outcome struct {
	Output    map[string]any
	Suspended bool
}

// Runner executes a single node of a workflow.
type Runner interface {
	Run(ctx context.Context, run RunContext) (Outcome, error)
}

// CredentialResolver loads a stored credential by ID.
type CredentialResolver interface {
	Resolve(ctx context.Context, id string) (*models.Credential, error)
}

// Dependencies are shared services handed to runner factories.
type Dependencies struct {
	Credentials CredentialResolver
	HTTPClient  *http.Client
}

// RunnerFactory creates runners of one node type from node configuration.
type RunnerFactory interface {
	// ID returns the node type this factory builds, e.g. "telegram".
	ID() string

	Name() string

	Description() string

	Create(ctx context.Context, nodeID string, config map[string]any, deps Dependencies) (Runner, error)

	// Schema returns the JSON schema the node configuration is validated
	// against before Create is called.
	Schema() map[string]any
}
