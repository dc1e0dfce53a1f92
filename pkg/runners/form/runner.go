package form

import (
	"context"

	"github.com/flowd-io/flowd/pkg/protocol"
)

// Runner suspends the execution at its node. The submitted form data becomes
// the node's result when the execution is resumed; the runner itself never
// produces output.
type Runner struct {
	title string
}

func NewRunner(config map[string]any) *Runner {
	title, _ := config["title"].(string)

	return &Runner{title: title}
}

func (r *Runner) Run(ctx context.Context, run protocol.RunContext) (protocol.Outcome, error) {
	if run.Logger != nil {
		run.Logger.InfoContext(ctx, "Waiting for form submission", "form_title", r.title)
	}

	return protocol.Outcome{Suspended: true}, nil
}
