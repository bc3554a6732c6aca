package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seanblong/paperrag/pkg/models"
	"google.golang.org/genai"
)

type VertexAIClient struct {
	config *ClientConfig
	client *genai.Client
}

// NewVertexAIClient creates a new client for the Google Gemini API.
func NewVertexAIClient(ctx context.Context, cfg *ClientConfig) (*VertexAIClient, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	config := *cfg
	applyVertexDefaults(&config)

	cc := genai.ClientConfig{
		Backend: genai.BackendVertexAI,
	}
	if strings.TrimSpace(config.GoogleAPIKey) != "" {
		cc.APIKey = config.GoogleAPIKey
	}
	if strings.TrimSpace(config.ProjectID) != "" {
		cc.Project = config.ProjectID
	}
	if strings.TrimSpace(config.Location) != "" {
		cc.Location = config.Location
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &VertexAIClient{
		config: &config,
		client: client,
	}, nil
}

func applyVertexDefaults(config *ClientConfig) {
	if config.EmbedModel == "" || strings.HasPrefix(config.EmbedModel, "text-embedding-3") {
		config.EmbedModel = "text-embedding-005"
	}
	if config.GeminiModel == "" {
		config.GeminiModel = "gemini-2.0-flash"
	}
	if config.Dim == 0 {
		config.Dim = 768
	}
	if config.Location == "" && strings.TrimSpace(config.GoogleAPIKey) == "" {
		config.Location = "us-central1"
	}
}

// Embed implements the embedding functionality using the Gemini API
func (c *VertexAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.client == nil {
		return nil, errors.New("gemini client not initialized")
	}
	cfg := genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_DOCUMENT",
	}

	res, err := c.client.Models.EmbedContent(ctx, c.config.EmbedModel, genai.Text(text), &cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	if res == nil || len(res.Embeddings) == 0 {
		return nil, errors.New("no embedding returned")
	}

	return res.Embeddings[0].Values, nil
}

// Complete implements chat completion using the Gemini API
func (c *VertexAIClient) Complete(ctx context.Context, system string, history []models.Message, maxTokens int) (string, error) {
	if c.client == nil {
		return "", errors.New("gemini client not initialized")
	}

	cfg := genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.GeminiModel, geminiContents(history), &cfg)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content returned")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

// geminiContents maps the conversation onto Gemini roles ("user"/"model").
func geminiContents(history []models.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	return out
}

func (c *VertexAIClient) Dim() int {
	return c.config.Dim
}
