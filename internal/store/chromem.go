package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/pkg/models"
)

// ChromemIndex is an Index persisted to a local directory with chromem-go.
type ChromemIndex struct {
	db         *chromem.DB
	name       string
	embed      chromem.EmbeddingFunc
	collection *chromem.Collection
}

// NewChromemIndex opens (or creates) the database at path and the named
// collection inside it.
func NewChromemIndex(path, name string, embedder ai.Embedder) (*ChromemIndex, error) {
	if path == "" {
		return nil, errors.New("vectorstore path is required")
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore %s: %w", path, err)
	}

	idx := &ChromemIndex{
		db:    db,
		name:  name,
		embed: embedder.Embed,
	}
	if err := idx.open(); err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Str("collection", name).Int("count", idx.collection.Count()).Msg("vectorstore opened")
	return idx, nil
}

func (c *ChromemIndex) open() error {
	col, err := c.db.GetOrCreateCollection(c.name, nil, c.embed)
	if err != nil {
		return fmt.Errorf("collection %s: %w", c.name, err)
	}
	c.collection = col
	return nil
}

// Add embeds the chunks one at a time so that provider calls stay sequential.
func (c *ChromemIndex) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, chromem.Document{
			ID:       ch.ID,
			Content:  ch.Text,
			Metadata: Metadata(ch),
		})
	}
	return c.collection.AddDocuments(ctx, docs, 1)
}

// Search clamps k to the collection size; chromem rejects larger values.
func (c *ChromemIndex) Search(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	n := min(k, c.collection.Count())
	if n <= 0 || query == "" {
		return []models.RetrievalResult{}, nil
	}

	res, err := c.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, err
	}

	out := make([]models.RetrievalResult, 0, len(res))
	for _, r := range res {
		out = append(out, models.RetrievalResult{
			Text:     r.Content,
			Metadata: r.Metadata,
			Score:    float64(r.Similarity),
		})
	}
	return out, nil
}

func (c *ChromemIndex) Count(context.Context) (int, error) {
	return c.collection.Count(), nil
}

// Reset drops the collection and recreates it empty.
func (c *ChromemIndex) Reset(context.Context) error {
	if err := c.db.DeleteCollection(c.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", c.name, err)
	}
	return c.open()
}

// Close is a no-op; every write is persisted immediately.
func (c *ChromemIndex) Close() {}
