// Package webhook provides the webhook trigger node.
package webhook

import (
	"context"

	"github.com/flowd-io/flowd/pkg/protocol"
)

// Factory creates webhook trigger runners.
type Factory struct{}

func NewFactory() protocol.RunnerFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "webhook"
}

func (f *Factory) Name() string {
	return "Webhook Trigger"
}

func (f *Factory) Description() string {
	return "Entry node for executions started by an incoming webhook request"
}

func (f *Factory) Create(_ context.Context, nodeID string, _ map[string]any, _ protocol.Dependencies) (protocol.Runner, error) {
	return &Runner{id: nodeID}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

// Runner passes the webhook payload through unchanged.
type Runner struct {
	id string
}

func (r *Runner) Run(_ context.Context, run protocol.RunContext) (protocol.Outcome, error) {
	return protocol.Outcome{Output: run.Data}, nil
}
