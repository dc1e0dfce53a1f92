package telegram

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

const defaultAPIURL = "https://api.telegram.org"

// Runner sends a templated message to a Telegram chat. The bot token and
// chat id come from the node's credential, never from node configuration.
type Runner struct {
	id     string
	config Config
	deps   protocol.Dependencies
}

// Config defines the configuration for Telegram nodes.
type Config struct {
	Message string `json:"message"`
	APIURL  string `json:"api_url"`
}

func NewRunner(id string, config map[string]any, deps protocol.Dependencies) (*Runner, error) {
	cfg := Config{APIURL: defaultAPIURL}

	if message, ok := config["message"].(string); ok {
		cfg.Message = message
	}

	if apiURL, ok := config["api_url"].(string); ok && apiURL != "" {
		cfg.APIURL = apiURL
	}

	return &Runner{id: id, config: cfg, deps: deps}, nil
}

func (r *Runner) Run(ctx context.Context, run protocol.RunContext) (protocol.Outcome, error) {
	credential, err := r.deps.Credentials.Resolve(ctx, run.CredentialID)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to resolve telegram credential: %w", err)
	}

	if err := credentials.Require(credential, "apiKey", "chatId"); err != nil {
		return protocol.Outcome{}, err
	}

	apiKey, _ := credential.Field("apiKey")
	chatID, _ := credential.Field("chatId")

	message, err := template.Render(r.config.Message, run.Data)
	if err != nil {
		return protocol.Outcome{}, err
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    message,
	})
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", r.config.APIURL, apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to build telegram request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(r.deps).Do(req)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("telegram request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to read telegram response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return protocol.Outcome{}, fmt.Errorf("telegram api error: status %d: %s", resp.StatusCode, string(body))
	}

	return protocol.Outcome{
		Output: map[string]any{
			"msg":      message,
			"msg_sent": string(body),
		},
	}, nil
}

func httpClient(deps protocol.Dependencies) *http.Client {
	if deps.HTTPClient != nil {
		return deps.HTTPClient
	}

	return http.DefaultClient
}
