// Package form provides the form node. Running it suspends the execution
// until a submission arrives through the resume endpoint.
package form

import (
	"context"

	"github.com/flowd-io/flowd/pkg/protocol"
)

// Factory creates form runners.
type Factory struct{}

func NewFactory() protocol.RunnerFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "form"
}

func (f *Factory) Name() string {
	return "Form"
}

func (f *Factory) Description() string {
	return "Pauses the execution until form data is submitted"
}

func (f *Factory) Create(_ context.Context, _ string, config map[string]any, _ protocol.Dependencies) (protocol.Runner, error) {
	return NewRunner(config), nil
}

// Schema returns the JSON schema for form node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Form title shown to the person filling it in",
			},
			"fields": map[string]any{
				"type":        "array",
				"description": "Field definitions rendered by the form UI",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":  map[string]any{"type": "string"},
						"label": map[string]any{"type": "string"},
						"type":  map[string]any{"type": "string"},
					},
					"required": []string{"name"},
				},
			},
		},
	}
}
