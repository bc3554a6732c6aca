package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/chunker"
	"github.com/seanblong/paperrag/internal/loader"
	"github.com/seanblong/paperrag/internal/store"
	"github.com/seanblong/paperrag/pkg/models"
)

// DefaultBatchSize is the number of chunks handed to the index at once.
const DefaultBatchSize = 64

// DocumentSource defines the interface for loading the paper
type DocumentSource interface {
	Load() ([]models.Document, error)
}

// Indexer loads the paper, chunks it and writes the chunks to an index.
type Indexer struct {
	Index     store.Index
	Source    DocumentSource
	Splitter  *chunker.Splitter
	BatchSize int
	// Reset empties the collection before indexing.
	Reset bool
}

// Stats summarizes an ingestion run.
type Stats struct {
	Documents int
	Chunks    int
	Indexed   int
	Failed    int
	Batches   int
	Count     int // collection size after the run
}

// New creates a new Indexer reading markdown files under paperPath.
func New(idx store.Index, paperPath string, splitter *chunker.Splitter) *Indexer {
	return NewWithDependencies(idx, loader.New(paperPath), splitter)
}

// NewWithDependencies creates a new Indexer instance with custom dependencies for testing
func NewWithDependencies(idx store.Index, src DocumentSource, splitter *chunker.Splitter) *Indexer {
	return &Indexer{
		Index:     idx,
		Source:    src,
		Splitter:  splitter,
		BatchSize: DefaultBatchSize,
	}
}

// Run ingests the paper. A batch the index rejects is logged and skipped;
// only load, reset and cancellation errors abort the run.
func (ix *Indexer) Run(ctx context.Context) (Stats, error) {
	var st Stats
	if ix.Index == nil || ix.Source == nil || ix.Splitter == nil {
		return st, errors.New("indexer is missing a dependency")
	}

	docs, err := ix.Source.Load()
	if err != nil {
		return st, err
	}
	st.Documents = len(docs)

	var chunks []models.Chunk
	for _, d := range docs {
		cs := ix.Splitter.SplitDocument(d)
		log.Debug().Str("source", d.Source).Int("chunks", len(cs)).Msg("chunked document")
		chunks = append(chunks, cs...)
	}
	st.Chunks = len(chunks)
	log.Info().Int("documents", st.Documents).Int("chunks", st.Chunks).Msg("paper chunked")

	if ix.Reset {
		if err := ix.Index.Reset(ctx); err != nil {
			return st, fmt.Errorf("reset collection: %w", err)
		}
		log.Info().Msg("collection cleared")
	}

	size := ix.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for start := 0; start < len(chunks); start += size {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		end := min(start+size, len(chunks))
		batch := chunks[start:end]
		st.Batches++

		if err := ix.Index.Add(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			st.Failed += len(batch)
			log.Error().Err(err).Int("from", start).Int("to", end).Msg("batch failed")
			continue
		}
		st.Indexed += len(batch)
		log.Info().Int("indexed", st.Indexed).Int("total", st.Chunks).Msg("batch indexed")
	}

	n, err := ix.Index.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count collection")
	}
	st.Count = n
	return st, nil
}
