package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/flowd-io/flowd/pkg/credentials"
	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/flowd-io/flowd/pkg/template"
)

const (
	defaultAPIURL = "https://api.resend.com"
	defaultFrom   = "onboarding@resend.dev"
)

// Runner sends an email through the Resend API. Recipient, subject and body
// are node templates rendered against the accumulated run context.
type Runner struct {
	id     string
	config Config
	deps   protocol.Dependencies
}

// Config defines the configuration for email nodes.
type Config struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	APIURL  string `json:"api_url"`
}

func NewRunner(id string, config map[string]any, deps protocol.Dependencies) (*Runner, error) {
	cfg := Config{APIURL: defaultAPIURL}

	if to, ok := config["to"].(string); ok {
		cfg.To = to
	}

	if subject, ok := config["subject"].(string); ok {
		cfg.Subject = subject
	}

	if body, ok := config["body"].(string); ok {
		cfg.Body = body
	}

	if apiURL, ok := config["api_url"].(string); ok && apiURL != "" {
		cfg.APIURL = apiURL
	}

	return &Runner{id: id, config: cfg, deps: deps}, nil
}

func (r *Runner) Run(ctx context.Context, run protocol.RunContext) (protocol.Outcome, error) {
	credential, err := r.deps.Credentials.Resolve(ctx, run.CredentialID)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to resolve email credential: %w", err)
	}

	if err := credentials.Require(credential, "apiKey"); err != nil {
		return protocol.Outcome{}, err
	}

	apiKey, _ := credential.Field("apiKey")

	to, err := template.Render(r.config.To, run.Data)
	if err != nil {
		return protocol.Outcome{}, err
	}

	subject, err := template.Render(r.config.Subject, run.Data)
	if err != nil {
		return protocol.Outcome{}, err
	}

	body, err := template.Render(r.config.Body, run.Data)
	if err != nil {
		return protocol.Outcome{}, err
	}

	payload, err := json.Marshal(map[string]any{
		"from":    defaultFrom,
		"to":      to,
		"subject": subject,
		"html":    body,
	})
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.APIURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to build email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient(r.deps).Do(req)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("email request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to read email response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return protocol.Outcome{}, fmt.Errorf("failed to send the email: status %d: %s", resp.StatusCode, string(respBody))
	}

	return protocol.Outcome{
		Output: map[string]any{
			"to":           to,
			"subject":      subject,
			"body":         body,
			"message_sent": string(respBody),
		},
	}, nil
}

func httpClient(deps protocol.Dependencies) *http.Client {
	if deps.HTTPClient != nil {
		return deps.HTTPClient
	}

	return http.DefaultClient
}
