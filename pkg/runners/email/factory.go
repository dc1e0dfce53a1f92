// Package email provides the email node, delivered through the Resend API.
package email

import (
	"context"

	"github.com/flowd-io/flowd/pkg/protocol"
)

// Factory creates email runners.
type Factory struct{}

func NewFactory() protocol.RunnerFactory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "email"
}

func (f *Factory) Name() string {
	return "Email"
}

func (f *Factory) Description() string {
	return "Sends a transactional email through a Resend credential"
}

func (f *Factory) Create(_ context.Context, nodeID string, config map[string]any, deps protocol.Dependencies) (protocol.Runner, error) {
	return NewRunner(nodeID, config, deps)
}

// Schema returns the JSON schema for email node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address. Supports templating with {{key}}",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports templating",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "HTML body. Supports templating",
			},
			"api_url": map[string]any{
				"type":        "string",
				"description": "Resend API base URL override",
			},
		},
		"required": []string{"to"},
	}
}
