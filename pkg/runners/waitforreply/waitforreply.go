// Package waitforreply provides the wait-for-reply node. Like the form
// node it suspends the execution, but the resume data comes from an
// external event rather than a form submission.
package waitforreply

import (
	"context"

	"github.com/flowd-io/flowd/pkg/protocol"
)

// Factory creates wait-for-reply runners.
type Factory struct{}

func NewFactory() protocol.RunnerFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "waitForReply"
}

func (f *Factory) Name() string {
	return "Wait For Reply"
}

func (f *Factory) Description() string {
	return "Pauses the execution until an external event resumes it"
}

func (f *Factory) Create(_ context.Context, _ string, _ map[string]any, _ protocol.Dependencies) (protocol.Runner, error) {
	return &Runner{}, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

// Runner parks the execution at its node until resumed.
type Runner struct{}

func (r *Runner) Run(ctx context.Context, run protocol.RunContext) (protocol.Outcome, error) {
	if run.Logger != nil {
		run.Logger.InfoContext(ctx, "Waiting for reply")
	}

	return protocol.Outcome{Suspended: true}, nil
}
