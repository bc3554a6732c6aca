package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/pkg/models"
)

// PgIndex is an Index stored in Postgres with the pgvector extension. Several
// collections share one table.
type PgIndex struct {
	pool       *pgxpool.Pool
	collection string
	embedder   ai.Embedder
}

// NewPgIndex connects to the database at url.
func NewPgIndex(ctx context.Context, url, collection string, embedder ai.Embedder) (*PgIndex, error) {
	if url == "" {
		return nil, errors.New("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PgIndex{pool: p, collection: collection, embedder: embedder}, nil
}

func (s *PgIndex) Close() { s.pool.Close() }

// Ping checks the database connectivity.
func (s *PgIndex) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Migrate creates the extension, table and indexes.
func (s *PgIndex) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL(s.embedder.Dim()))
	return err
}

func migrationSQL(dim int) string {
	const q = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS paper_chunks (
  collection  TEXT NOT NULL,
  id          TEXT NOT NULL,
  source      TEXT NOT NULL,
  filename    TEXT NOT NULL DEFAULT '',
  section     TEXT NOT NULL DEFAULT '',
  title       TEXT NOT NULL DEFAULT '',
  chunk_index INT  NOT NULL,
  chunk_total INT  NOT NULL,
  content     TEXT NOT NULL,
  embedding   vector(%d),
  created_at  TIMESTAMP WITH TIME ZONE DEFAULT now(),
  PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS paper_chunks_source_idx
  ON paper_chunks (collection, source);

CREATE INDEX IF NOT EXISTS paper_chunks_embedding_idx
  ON paper_chunks USING hnsw (embedding vector_cosine_ops);
`
	return fmt.Sprintf(q, dim)
}

const upsertSQL = `
	INSERT INTO paper_chunks (
		collection, id, source, filename, section, title,
		chunk_index, chunk_total, content, embedding
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (collection, id) DO UPDATE SET
		source      = EXCLUDED.source,
		filename    = EXCLUDED.filename,
		section     = EXCLUDED.section,
		title       = EXCLUDED.title,
		chunk_index = EXCLUDED.chunk_index,
		chunk_total = EXCLUDED.chunk_total,
		content     = EXCLUDED.content,
		embedding   = EXCLUDED.embedding;`

// Add embeds every chunk and upserts the batch in a single transaction.
func (s *PgIndex) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vecs := make([]pgvector.Vector, len(chunks))
	for i, c := range chunks {
		v, err := s.embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("embed %s#%d: %w", c.Source, c.Index, err)
		}
		vecs[i] = pgvector.NewVector(v)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Warn().Err(err).Msg("rollback failed")
		}
	}()

	for i, c := range chunks {
		if _, err := tx.Exec(ctx, upsertSQL,
			s.collection, c.ID, c.Source, c.Filename, c.Section, c.Title,
			c.Index, c.Total, c.Text, vecs[i],
		); err != nil {
			return fmt.Errorf("upsert %s: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// Search ranks chunks by cosine similarity to the embedded query.
func (s *PgIndex) Search(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	if query == "" || k <= 0 {
		return []models.RetrievalResult{}, nil
	}
	v, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	const q = `
SELECT content, source, filename, section, title, chunk_index, chunk_total,
       1 - (embedding <=> $1) AS score
FROM paper_chunks
WHERE collection = $2
ORDER BY embedding <=> $1
LIMIT $3;`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(v), s.collection, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RetrievalResult{}
	for rows.Next() {
		var c models.Chunk
		var score float64
		if err := rows.Scan(&c.Text, &c.Source, &c.Filename, &c.Section, &c.Title, &c.Index, &c.Total, &score); err != nil {
			return nil, err
		}
		out = append(out, models.RetrievalResult{Text: c.Text, Metadata: Metadata(c), Score: score})
	}
	return out, rows.Err()
}

func (s *PgIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM paper_chunks WHERE collection = $1`, s.collection).Scan(&n)
	return n, err
}

func (s *PgIndex) Reset(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM paper_chunks WHERE collection = $1`, s.collection)
	if err != nil {
		return err
	}
	log.Info().Str("collection", s.collection).Int64("deleted", tag.RowsAffected()).Msg("collection reset")
	return nil
}
