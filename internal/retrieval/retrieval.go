package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/store"
	"github.com/seanblong/paperrag/pkg/models"
)

// DefaultTopK is used when a caller asks for k <= 0.
const DefaultTopK = 5

// NoContent stands in for the context block when nothing was retrieved.
const NoContent = "No relevant content found in the paper."

type Service struct {
	Index store.Index
	TopK  int
}

// NewService creates a retrieval service over idx returning topK results by
// default.
func NewService(idx store.Index, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{Index: idx, TopK: topK}
}

// Retrieve returns the k chunks most similar to query, best first.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	if s.Index == nil {
		return nil, errors.New("retrieval: no index")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.RetrievalResult{}, nil
	}
	if k <= 0 {
		k = s.TopK
		if k <= 0 {
			k = DefaultTopK
		}
	}

	res, err := s.Index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Score > res[j].Score })
	if len(res) > k {
		res = res[:k]
	}
	log.Debug().Str("query", query).Int("k", k).Int("results", len(res)).Msg("retrieved")
	return res, nil
}

// FormatContext renders results as numbered source blocks separated by a
// blank line.
func FormatContext(results []models.RetrievalResult) string {
	if len(results) == 0 {
		return NoContent
	}
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("--- Source %d: %s (relevance: %.2f) ---\n%s", i+1, r.Source(), r.Score, r.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// Sources lists the distinct sources of results in rank order.
func Sources(results []models.RetrievalResult) []string {
	seen := make(map[string]bool, len(results))
	out := make([]string, 0, len(results))
	for _, r := range results {
		src := r.Source()
		if !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	return out
}
