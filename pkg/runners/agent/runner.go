package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/flowd-io/flowd/pkg/credentials"
	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/flowd-io/flowd/pkg/template"
)

const (
	defaultAPIURL = "https://generativelanguage.googleapis.com"
	defaultModel  = "gemini-1.5-flash"
)

// Runner renders the prompt template against the run context and sends it to
// the Gemini generateContent endpoint.
type Runner struct {
	id     string
	config Config
	deps   protocol.Dependencies
}

// Config defines the configuration for agent nodes.
type Config struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	APIURL string `json:"api_url"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func NewRunner(id string, config map[string]any, deps protocol.Dependencies) (*Runner, error) {
	cfg := Config{APIURL: defaultAPIURL, Model: defaultModel}

	prompt, ok := config["prompt"].(string)
	if !ok || prompt == "" {
		return nil, errors.New("missing required field 'prompt'")
	}

	cfg.Prompt = prompt

	if model, ok := config["model"].(string); ok && model != "" {
		cfg.Model = model
	}

	if apiURL, ok := config["api_url"].(string); ok && apiURL != "" {
		cfg.APIURL = apiURL
	}

	return &Runner{id: id, config: cfg, deps: deps}, nil
}

func (r *Runner) Run(ctx context.Context, run protocol.RunContext) (protocol.Outcome, error) {
	credential, err := r.deps.Credentials.Resolve(ctx, run.CredentialID)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to resolve agent credential: %w", err)
	}

	if err := credentials.Require(credential, "apiKey"); err != nil {
		return protocol.Outcome{}, err
	}

	apiKey, _ := credential.Field("apiKey")

	prompt, err := template.Render(r.config.Prompt, run.Data)
	if err != nil {
		return protocol.Outcome{}, err
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to marshal agent payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", r.config.APIURL, r.config.Model, apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to build agent request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(r.deps).Do(req)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("agent request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to read agent response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return protocol.Outcome{}, fmt.Errorf("agent api error: status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to decode agent response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return protocol.Outcome{}, errors.New("agent response contained no candidates")
	}

	return protocol.Outcome{
		Output: map[string]any{
			"result": parsed.Candidates[0].Content.Parts[0].Text,
		},
	}, nil
}

func httpClient(deps protocol.Dependencies) *http.Client {
	if deps.HTTPClient != nil {
		return deps.HTTPClient
	}

	return http.DefaultClient
}
