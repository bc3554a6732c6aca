package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/seanblong/paperrag/internal/retrieval"
	"github.com/seanblong/paperrag/pkg/models"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// MockRetriever implements Retriever for testing
type MockRetriever struct {
	Results []models.RetrievalResult
	Err     error
	ks      []int
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	m.ks = append(m.ks, k)
	return m.Results, m.Err
}

// MockCompleter implements ai.Completer for testing
type MockCompleter struct {
	Reply   string
	Err     error
	system  string
	history []models.Message
	tokens  int
}

func (m *MockCompleter) Complete(ctx context.Context, system string, history []models.Message, maxTokens int) (string, error) {
	m.system, m.history, m.tokens = system, history, maxTokens
	return m.Reply, m.Err
}

func excerpt(src, text string, score float64) models.RetrievalResult {
	return models.RetrievalResult{Text: text, Metadata: map[string]string{models.MetaSource: src}, Score: score}
}

func TestAsk(t *testing.T) {
	mr := &MockRetriever{Results: []models.RetrievalResult{
		excerpt("intro/overview.md", "Love is decentralized coordination.", 0.91),
		excerpt("exit/rights.md", "Exit rights keep power honest.", 0.72),
		excerpt("intro/overview.md", "Entropy governs the universe.", 0.64),
	}}
	mc := &MockCompleter{Reply: "Love is the best strategy."}
	p := New(mr, mc, "You are a guide.", 0)

	ans, err := p.Ask(context.Background(), "  Why love? ", 3)
	assert.NilError(t, err)

	assert.Equal(t, ans.Text, "Love is the best strategy.")
	assert.Assert(t, is.Len(ans.Results, 3))
	assert.DeepEqual(t, ans.Sources, []string{"intro/overview.md", "exit/rights.md"})

	assert.DeepEqual(t, mr.ks, []int{3})
	assert.Equal(t, mc.tokens, DefaultMaxTokens)
	assert.DeepEqual(t, mc.history, []models.Message{{Role: models.RoleUser, Content: "Why love?"}})
	assert.Assert(t, strings.HasPrefix(mc.system, "You are a guide.\n\n## Grounding Context\n\n"))
	assert.Assert(t, is.Contains(mc.system, "--- Source 1: intro/overview.md (relevance: 0.91) ---\nLove is decentralized coordination."))
	assert.Assert(t, is.Contains(mc.system, "--- Source 2: exit/rights.md (relevance: 0.72) ---"))
}

func TestAsk_NoResults(t *testing.T) {
	mc := &MockCompleter{Reply: "I could not find that in the paper."}
	p := New(&MockRetriever{}, mc, "base", 128)

	ans, err := p.Ask(context.Background(), "unrelated", 0)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(ans.Sources, 0))
	assert.Equal(t, mc.tokens, 128)
	assert.Assert(t, is.Contains(mc.system, retrieval.NoContent))
}

func TestAsk_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		p       *Pipeline
		query   string
		wantErr string
	}{
		{"empty query", New(&MockRetriever{}, &MockCompleter{}, "", 0), "   ", "empty query"},
		{"no completer", New(&MockRetriever{}, nil, "", 0), "q", "no completer"},
		{"no retriever", New(nil, &MockCompleter{}, "", 0), "q", "no retriever"},
		{"retrieve fails", New(&MockRetriever{Err: boom}, &MockCompleter{}, "", 0), "q", "retrieve: boom"},
		{"complete fails", New(&MockRetriever{}, &MockCompleter{Err: boom}, "", 0), "q", "complete: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.p.Ask(context.Background(), tt.query, 0)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
