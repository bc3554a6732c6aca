package ai

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/seanblong/paperrag/pkg/models"
)

// Completer returns the assistant's reply to a conversation.
type Completer interface {
	Complete(ctx context.Context, system string, history []models.Message, maxTokens int) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// Provider is enumeration of supported AI providers
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderVertexAI  Provider = "vertexai"
	ProviderStub      Provider = "stub"
)

// ErrMissingCredential is returned when the selected provider has no API key.
var ErrMissingCredential = errors.New("missing API credential")

// ClientConfig holds configuration for AI clients
type ClientConfig struct {
	Provider      Provider
	EmbedProvider Provider

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIProject string

	GoogleAPIKey string
	ProjectID    string
	Location     string
	GeminiModel  string

	EmbedModel string
	Dim        int
}

// ParseProvider normalizes a provider name; "google" is an alias of vertexai.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderAnthropic, ProviderOpenAI, ProviderVertexAI, ProviderStub:
		return p, nil
	case "google":
		return ProviderVertexAI, nil
	default:
		return "", fmt.Errorf("unsupported provider: %q", s)
	}
}

// NewCompleter creates the chat completion client selected by config.Provider
func NewCompleter(ctx context.Context, config *ClientConfig) (Completer, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	switch config.Provider {
	case ProviderAnthropic:
		if strings.TrimSpace(config.AnthropicAPIKey) == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", ErrMissingCredential)
		}
		return NewAnthropicClient(config), nil
	case ProviderOpenAI:
		if strings.TrimSpace(config.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrMissingCredential)
		}
		return NewOpenAIClient(config), nil
	case ProviderVertexAI:
		return NewVertexAIClient(ctx, config)
	case ProviderStub:
		return NewStubClient(config.Dim), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// NewEmbedder creates the embedding client selected by config.EmbedProvider
func NewEmbedder(ctx context.Context, config *ClientConfig) (Embedder, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	switch config.EmbedProvider {
	case ProviderOpenAI:
		if strings.TrimSpace(config.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrMissingCredential)
		}
		return NewOpenAIClient(config), nil
	case ProviderVertexAI:
		return NewVertexAIClient(ctx, config)
	case ProviderStub:
		return NewStubClient(config.Dim), nil
	default:
		return nil, errors.New("unsupported embedding provider: " + string(config.EmbedProvider))
	}
}

// StubClient is an offline implementation of Completer and Embedder. It
// embeds text as a hashed bag of words and answers with a fixed reply.
type StubClient struct {
	dim int
	// Reply, when set, produces the completion for a conversation.
	Reply func(system string, history []models.Message) string
}

// NewStubClient creates a new StubClient
func NewStubClient(dim int) *StubClient {
	if dim <= 0 {
		dim = 256
	}
	return &StubClient{dim: dim}
}

// Embed returns a unit-length hashed bag-of-words vector.
func (s *StubClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, s.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(s.dim)]++
	}
	if len(words) == 0 {
		vec[0] = 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// Complete echoes the last user turn unless Reply is set.
func (s *StubClient) Complete(ctx context.Context, system string, history []models.Message, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Reply != nil {
		return s.Reply(system, history), nil
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return "stub reply: " + history[i].Content, nil
		}
	}
	return "stub reply", nil
}

// Dim returns the embedding dimension
func (s *StubClient) Dim() int {
	return s.dim
}
