package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/pkg/models"
)

// Index is a collection of embedded chunks that can be searched by text.
type Index interface {
	// Add embeds and stores chunks. Chunks with an existing ID are replaced.
	Add(ctx context.Context, chunks []models.Chunk) error
	// Search returns at most k chunks ordered by descending similarity.
	Search(ctx context.Context, query string, k int) ([]models.RetrievalResult, error)
	Count(ctx context.Context) (int, error)
	// Reset removes every chunk from the collection.
	Reset(ctx context.Context) error
	Close()
}

// Backend names accepted by Open.
const (
	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"
)

// Options selects and locates an index backend.
type Options struct {
	Backend     string
	Path        string // chromem: directory of the persistent database
	Collection  string
	DatabaseURL string // pgvector: postgres connection string
}

// Open returns the index selected by opt.Backend. Every document and query
// is embedded with embedder.
func Open(ctx context.Context, opt Options, embedder ai.Embedder) (Index, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if strings.TrimSpace(opt.Collection) == "" {
		return nil, errors.New("collection name is required")
	}

	switch opt.Backend {
	case BackendChromem, "":
		return NewChromemIndex(opt.Path, opt.Collection, embedder)
	case BackendPgvector:
		idx, err := NewPgIndex(ctx, opt.DatabaseURL, opt.Collection, embedder)
		if err != nil {
			return nil, err
		}
		if err := idx.Migrate(ctx); err != nil {
			idx.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", opt.Backend)
	}
}

// Metadata flattens a chunk's provenance into string metadata.
func Metadata(c models.Chunk) map[string]string {
	return map[string]string{
		models.MetaSource:     c.Source,
		models.MetaFilename:   c.Filename,
		models.MetaSection:    c.Section,
		models.MetaTitle:      c.Title,
		models.MetaChunkIndex: strconv.Itoa(c.Index),
		models.MetaChunkTotal: strconv.Itoa(c.Total),
	}
}
