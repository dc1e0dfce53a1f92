// Package telegram provides the Telegram message node for workflow execution.
package telegram

import (
	"context"

	"github.com/flowd-io/flowd/pkg/protocol"
)

// Factory creates Telegram runners.
type Factory struct{}

func NewFactory() protocol.RunnerFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "telegram"
}

func (f *Factory) Name() string {
	return "Telegram"
}

func (f *Factory) Description() string {
	return "Sends a message to a Telegram chat through a bot credential"
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any, deps protocol.Dependencies) (protocol.Runner, error) {
	return NewRunner(nodeID, config, deps)
}

// Schema returns the JSON schema for Telegram node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message text. Supports templating with {{key}} from the run context",
				"examples": []string{
					"Hello {{name}}",
					"Order {{order_id}} shipped",
				},
			},
			"api_url": map[string]any{
				"type":        "string",
				"description": "Telegram API base URL override",
			},
		},
		"required": []string{"message"},
	}
}
