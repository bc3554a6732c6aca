package store

import (
	"context"
	"testing"

	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/pkg/models"
)

func newTestIndex(t *testing.T, dir string) Index {
	t.Helper()
	idx, err := Open(context.Background(), Options{Backend: BackendChromem, Path: dir, Collection: "paper_content"}, ai.NewStubClient(64))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(idx.Close)
	return idx
}

func corpus() []models.Chunk {
	return []models.Chunk{
		chunk("1", "core/entropy.md", "Entropy is the tendency of closed systems toward disorder.", 0, 1),
		chunk("2", "core/syntropy.md", "Syntropy is the emergence of order through cooperation and love.", 0, 1),
		chunk("3", "governance/realms.md", "Realms give members exit rights and transparent rules.", 0, 1),
	}
}

func TestChromemIndex_AddSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, t.TempDir())

	if err := idx.Add(ctx, corpus()); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	n, err := idx.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count() = %d, %v; want 3", n, err)
	}

	res, err := idx.Search(ctx, "exit rights in realms", 2)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(res))
	}
	if res[0].Source() != "governance/realms.md" {
		t.Errorf("top result source = %q", res[0].Source())
	}
	if res[0].Metadata[models.MetaSection] != "core" || res[0].Metadata[models.MetaChunkTotal] != "1" {
		t.Errorf("metadata not preserved: %v", res[0].Metadata)
	}
	if res[0].Score < res[1].Score {
		t.Errorf("results not sorted: %f < %f", res[0].Score, res[1].Score)
	}
}

func TestChromemIndex_SearchClampsK(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, t.TempDir())

	res, err := idx.Search(ctx, "anything", 5)
	if err != nil || len(res) != 0 {
		t.Fatalf("empty index Search() = %v, %v", res, err)
	}

	if err := idx.Add(ctx, corpus()); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	res, err = idx.Search(ctx, "love", 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(res) != 3 {
		t.Errorf("Search() returned %d results, want 3", len(res))
	}
	if res, _ := idx.Search(ctx, "love", 0); len(res) != 0 {
		t.Errorf("k=0 returned %d results", len(res))
	}
}

func TestChromemIndex_UpsertAndReset(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, t.TempDir())

	if err := idx.Add(ctx, corpus()); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := idx.Add(ctx, corpus()[:1]); err != nil {
		t.Fatalf("re-Add() error: %v", err)
	}
	if n, _ := idx.Count(ctx); n != 3 {
		t.Errorf("Count() after re-adding = %d, want 3", n)
	}

	if err := idx.Reset(ctx); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if n, _ := idx.Count(ctx); n != 0 {
		t.Errorf("Count() after Reset = %d, want 0", n)
	}
	if err := idx.Add(ctx, corpus()[1:]); err != nil {
		t.Fatalf("Add() after Reset error: %v", err)
	}
	if n, _ := idx.Count(ctx); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestChromemIndex_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := newTestIndex(t, dir)
	if err := first.Add(ctx, corpus()); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	second := newTestIndex(t, dir)
	if n, _ := second.Count(ctx); n != 3 {
		t.Errorf("reopened Count() = %d, want 3", n)
	}
}
