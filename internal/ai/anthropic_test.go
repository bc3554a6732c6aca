package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seanblong/paperrag/pkg/models"
)

func TestAnthropicClient_Complete(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content": [{"type": "thinking", "text": "hmm"}, {"type": "text", "text": "Love over hate."}]}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(&ClientConfig{AnthropicAPIKey: "test-key", AnthropicBaseURL: server.URL})
	history := []models.Message{
		{Role: models.RoleSystem, Content: "Be brief."},
		{Role: models.RoleUser, Content: "Summarize the love ethic."},
	}
	reply, err := client.Complete(context.Background(), "You are a guide.", history, 4096)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if reply != "Love over hate." {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d", got.MaxTokens)
	}
	if got.System != "You are a guide.\n\nBe brief." {
		t.Errorf("system = %q", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestAnthropicClient_OmitsEmptySystem(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}]}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(&ClientConfig{AnthropicAPIKey: "k", AnthropicBaseURL: server.URL + "/"})
	if _, err := client.Complete(context.Background(), "", []models.Message{{Role: models.RoleUser, Content: "x"}}, 2048); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if _, ok := raw["system"]; ok {
		t.Errorf("expected no system field, got %v", raw["system"])
	}
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		errorMsg string
	}{
		{"api error", 400, `{"type": "error", "error": {"type": "invalid_request_error", "message": "max_tokens too large"}}`, "anthropic: max_tokens too large"},
		{"bare status", 529, `overloaded`, "anthropic: 529"},
		{"no text block", 200, `{"content": []}`, "no text content"},
		{"bad json", 200, `{`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewAnthropicClient(&ClientConfig{AnthropicAPIKey: "k", AnthropicBaseURL: server.URL})
			_, err := client.Complete(context.Background(), "s", []models.Message{{Role: models.RoleUser, Content: "x"}}, 10)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestAnthropicClient_MissingKey(t *testing.T) {
	client := NewAnthropicClient(&ClientConfig{})
	_, err := client.Complete(context.Background(), "", nil, 10)
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
	if client.config.AnthropicBaseURL != defaultAnthropicBaseURL {
		t.Errorf("base URL = %q", client.config.AnthropicBaseURL)
	}
}
