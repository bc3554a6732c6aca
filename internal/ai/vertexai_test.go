package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/seanblong/paperrag/pkg/models"
)

func TestApplyVertexDefaults(t *testing.T) {
	tests := []struct {
		name         string
		config       ClientConfig
		wantEmbed    string
		wantModel    string
		wantDim      int
		wantLocation string
	}{
		{
			name:         "empty config",
			config:       ClientConfig{},
			wantEmbed:    "text-embedding-005",
			wantModel:    "gemini-2.0-flash",
			wantDim:      768,
			wantLocation: "us-central1",
		},
		{
			name:         "openai embedding model replaced",
			config:       ClientConfig{EmbedModel: "text-embedding-3-small"},
			wantEmbed:    "text-embedding-005",
			wantModel:    "gemini-2.0-flash",
			wantDim:      768,
			wantLocation: "us-central1",
		},
		{
			name:         "explicit values kept",
			config:       ClientConfig{EmbedModel: "gemini-embedding-001", GeminiModel: "gemini-2.5-pro", Dim: 3072, Location: "europe-west4"},
			wantEmbed:    "gemini-embedding-001",
			wantModel:    "gemini-2.5-pro",
			wantDim:      3072,
			wantLocation: "europe-west4",
		},
		{
			name:         "api key leaves location empty",
			config:       ClientConfig{GoogleAPIKey: "key"},
			wantEmbed:    "text-embedding-005",
			wantModel:    "gemini-2.0-flash",
			wantDim:      768,
			wantLocation: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			applyVertexDefaults(&cfg)
			if cfg.EmbedModel != tt.wantEmbed {
				t.Errorf("EmbedModel = %q, want %q", cfg.EmbedModel, tt.wantEmbed)
			}
			if cfg.GeminiModel != tt.wantModel {
				t.Errorf("GeminiModel = %q, want %q", cfg.GeminiModel, tt.wantModel)
			}
			if cfg.Dim != tt.wantDim {
				t.Errorf("Dim = %d, want %d", cfg.Dim, tt.wantDim)
			}
			if cfg.Location != tt.wantLocation {
				t.Errorf("Location = %q, want %q", cfg.Location, tt.wantLocation)
			}
		})
	}
}

func TestNewVertexAIClient_NilConfig(t *testing.T) {
	if _, err := NewVertexAIClient(context.Background(), nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestVertexAIClient_Uninitialized(t *testing.T) {
	c := &VertexAIClient{config: &ClientConfig{Dim: 768}}
	ctx := context.Background()

	if _, err := c.Embed(ctx, "text"); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("Embed() error = %v", err)
	}
	if _, err := c.Complete(ctx, "sys", nil, 10); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("Complete() error = %v", err)
	}
	if c.Dim() != 768 {
		t.Errorf("Dim() = %d", c.Dim())
	}
}

func TestGeminiContents(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "What is a Realm?"},
		{Role: models.RoleAssistant, Content: "A governed space."},
		{Role: models.RoleUser, Content: "And a GOS?"},
	}
	got := geminiContents(history)
	if len(got) != 3 {
		t.Fatalf("got %d contents, want 3", len(got))
	}
	wantRoles := []string{"user", "model", "user"}
	for i, c := range got {
		if c.Role != wantRoles[i] {
			t.Errorf("content %d role = %q, want %q", i, c.Role, wantRoles[i])
		}
		if len(c.Parts) != 1 || c.Parts[0].Text != history[i].Content {
			t.Errorf("content %d parts = %+v", i, c.Parts)
		}
	}
}
