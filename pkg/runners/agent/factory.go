// Package agent provides the LLM agent node, backed by the Gemini API.
package agent

import (
	"context"

	"github.com/flowd-io/flowd/pkg/protocol"
)

// Factory creates agent runners.
type Factory struct{}

func NewFactory() protocol.RunnerFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "agent"
}

func (f *Factory) Name() string {
	return "Agent"
}

func (f *Factory) Description() string {
	return "Runs a templated prompt against a Gemini credential and emits the model output"
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any, deps protocol.Dependencies) (protocol.Runner, error) {
	return NewRunner(nodeID, config, deps)
}

// Schema returns the JSON schema for agent node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt text. Supports templating with {{key}} from the run context",
				"examples": []string{
					"Summarize: {{article}}",
					"Draft a reply to {{name}}",
				},
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Gemini model name",
				"default":     "gemini-1.5-flash",
			},
			"api_url": map[string]any{
				"type":        "string",
				"description": "Gemini API base URL override",
			},
		},
		"required": []string{"prompt"},
	}
}
