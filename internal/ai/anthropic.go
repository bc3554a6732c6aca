package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/pkg/models"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	config *ClientConfig
	http   *http.Client
}

func NewAnthropicClient(cfg *ClientConfig) *AnthropicClient {
	config := new(ClientConfig)
	if cfg != nil {
		*config = *cfg
	}
	if config.AnthropicModel == "" {
		config.AnthropicModel = "claude-sonnet-4-20250514"
	}
	if config.AnthropicBaseURL == "" {
		config.AnthropicBaseURL = defaultAnthropicBaseURL
	}
	return &AnthropicClient{
		config: config,
		http:   newHTTPClient(),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends the conversation to the Messages API. System turns in the
// history are folded into the system prompt since the API only accepts
// user and assistant messages.
func (c *AnthropicClient) Complete(ctx context.Context, system string, history []models.Message, maxTokens int) (string, error) {
	if c.config.AnthropicAPIKey == "" {
		return "", ErrMissingCredential
	}

	body := anthropicRequest{
		Model:     c.config.AnthropicModel,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  make([]anthropicMessage, 0, len(history)),
	}
	for _, m := range history {
		if m.Role == models.RoleSystem {
			body.System = strings.TrimSpace(body.System + "\n\n" + m.Content)
			continue
		}
		body.Messages = append(body.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.config.AnthropicBaseURL, "/")+"/v1/messages", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.AnthropicAPIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct{ Error struct{ Type, Message string } }
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error.Message != "" {
			return "", errors.New("anthropic: " + e.Error.Message)
		}
		return "", errors.New("anthropic: " + resp.Status)
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	for _, block := range out.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("no text content")
}
