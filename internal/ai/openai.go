package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/pkg/models"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type OpenAIClient struct {
	config *ClientConfig
	http   *http.Client
}

// NewOpenAIClient applies the OpenAI defaults to a copy of config, so one
// ClientConfig can feed clients of different providers.
func NewOpenAIClient(cfg *ClientConfig) *OpenAIClient {
	config := new(ClientConfig)
	if cfg != nil {
		*config = *cfg
	}

	// Set default models if not provided
	if config.EmbedModel == "" {
		config.EmbedModel = "text-embedding-3-small"
	}
	if config.OpenAIModel == "" {
		config.OpenAIModel = "gpt-4o"
	}
	if config.OpenAIBaseURL == "" {
		config.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	if config.Dim == 0 {
		switch config.EmbedModel {
		case "text-embedding-3-large":
			config.Dim = 3072
		default:
			// text-embedding-3-small and text-embedding-ada-002
			config.Dim = 1536
		}
	}

	return &OpenAIClient{
		config: config,
		http:   newHTTPClient(),
	}
}

// newHTTPClient returns a client without a timeout; callers bound requests
// through their context. TLS verification can be disabled for corporate
// proxies with PAPERRAG_SKIP_TLS_VERIFY.
func newHTTPClient() *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if skipTLS, _ := strconv.ParseBool(os.Getenv("PAPERRAG_SKIP_TLS_VERIFY")); skipTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}
	return &http.Client{Transport: transport}
}

// Embed implements the embedding functionality
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.config.OpenAIAPIKey == "" {
		return nil, ErrMissingCredential
	}

	payload := map[string]string{
		"input": text,
		"model": c.config.EmbedModel,
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/embeddings", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, errors.New("no embedding")
	}
	return out.Data[0].Embedding, nil
}

// Complete sends the conversation to the Chat Completions API.
func (c *OpenAIClient) Complete(ctx context.Context, system string, history []models.Message, maxTokens int) (string, error) {
	if c.config.OpenAIAPIKey == "" {
		return "", ErrMissingCredential
	}

	messages := make([]map[string]string, 0, len(history)+1)
	if system != "" {
		messages = append(messages, map[string]string{"role": string(models.RoleSystem), "content": system})
	}
	for _, m := range history {
		messages = append(messages, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	payload := map[string]any{
		"model":      c.config.OpenAIModel,
		"messages":   messages,
		"max_tokens": maxTokens,
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Dim() int {
	return c.config.Dim
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.config.OpenAIBaseURL, "/")+path, &buf)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct{ Error struct{ Message string } }
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error.Message != "" {
			return errors.New("openai: " + e.Error.Message)
		}
		return errors.New("openai: " + resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// setHeaders sets common headers for OpenAI requests
func (c *OpenAIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.OpenAIAPIKey)

	if strings.HasPrefix(c.config.OpenAIAPIKey, "sk-proj-") && c.config.OpenAIProject != "" {
		req.Header.Set("OpenAI-Project", c.config.OpenAIProject)
	}
}
