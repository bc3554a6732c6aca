// Package rag answers questions about the paper by grounding a completion
// in retrieved excerpts.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/internal/prompt"
	"github.com/seanblong/paperrag/internal/retrieval"
	"github.com/seanblong/paperrag/pkg/models"
)

// DefaultMaxTokens bounds the generated answer.
const DefaultMaxTokens = 4096

// Retriever finds the chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievalResult, error)
}

type Pipeline struct {
	Retriever Retriever
	Completer ai.Completer
	System    string
	MaxTokens int
}

// Answer is a grounded reply together with the excerpts it was based on.
type Answer struct {
	Text    string
	Results []models.RetrievalResult
	Sources []string
}

func New(r Retriever, c ai.Completer, system string, maxTokens int) *Pipeline {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Pipeline{Retriever: r, Completer: c, System: system, MaxTokens: maxTokens}
}

// Retrieve returns the excerpts Ask would ground a query in.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	if p.Retriever == nil {
		return nil, errors.New("pipeline has no retriever")
	}
	return p.Retriever.Retrieve(ctx, query, k)
}

// Ask retrieves k excerpts for query (the retriever's default when k <= 0),
// appends them to the system prompt and asks the model for a single-turn
// answer.
func (p *Pipeline) Ask(ctx context.Context, query string, k int) (Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, errors.New("empty query")
	}
	if p.Completer == nil {
		return Answer{}, errors.New("pipeline has no completer")
	}

	results, err := p.Retrieve(ctx, query, k)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	log.Debug().Int("chunks", len(results)).Msg("retrieved context")

	system, user := prompt.BuildRAG(p.System, retrieval.FormatContext(results), query)
	reply, err := p.Completer.Complete(ctx, system, []models.Message{{Role: models.RoleUser, Content: user}}, p.MaxTokens)
	if err != nil {
		return Answer{}, fmt.Errorf("complete: %w", err)
	}

	return Answer{
		Text:    reply,
		Results: results,
		Sources: retrieval.Sources(results),
	}, nil
}
