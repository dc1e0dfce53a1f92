package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type staticResolver struct {
	credential *models.Credential
}

func (r *staticResolver) Resolve(_ context.Context, id string) (*models.Credential, error) {
	if r.credential == nil || r.credential.ID != id {
		return nil, errors.New("credential not found")
	}

	return r.credential, nil
}

func TestRunner_Run_SendsRenderedEmail(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer server.Close()

	deps := protocol.Dependencies{
		Credentials: &staticResolver{credential: &models.Credential{
			ID:       "cred-1",
			Platform: models.PlatformResend,
			Data:     map[string]string{"apiKey": "re_test"},
		}},
		HTTPClient: server.Client(),
	}

	runner, err := NewRunner("welcome", map[string]any{
		"to":      "{{email}}",
		"subject": "Welcome {{name}}",
		"body":    "<p>Hi {{name}}</p>",
		"api_url": server.URL,
	}, deps)
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}

	outcome, err := runner.Run(context.Background(), protocol.RunContext{
		CredentialID: "cred-1",
		Data:         map[string]any{"email": "sam@example.com", "name": "Sam"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if gotAuth != "Bearer re_test" {
		t.Errorf("unexpected authorization header: %s", gotAuth)
	}

	if gotBody["to"] != "sam@example.com" || gotBody["subject"] != "Welcome Sam" {
		t.Errorf("unexpected payload: %v", gotBody)
	}

	if gotBody["from"] != defaultFrom {
		t.Errorf("unexpected sender: %v", gotBody["from"])
	}

	if outcome.Output["to"] != "sam@example.com" || outcome.Output["subject"] != "Welcome Sam" {
		t.Errorf("unexpected output: %v", outcome.Output)
	}
}

func TestRunner_Run_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to address"}`))
	}))
	defer server.Close()

	deps := protocol.Dependencies{
		Credentials: &staticResolver{credential: &models.Credential{
			ID:   "cred-1",
			Data: map[string]string{"apiKey": "re_test"},
		}},
		HTTPClient: server.Client(),
	}

	runner, err := NewRunner("welcome", map[string]any{"to": "no", "api_url": server.URL}, deps)
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}

	_, err = runner.Run(context.Background(), protocol.RunContext{CredentialID: "cred-1"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
