package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/internal/chunker"
	"github.com/seanblong/paperrag/internal/config"
	"github.com/seanblong/paperrag/internal/console"
	"github.com/seanblong/paperrag/internal/indexer"
	"github.com/seanblong/paperrag/internal/logging"
	"github.com/seanblong/paperrag/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("paperrag-ingest", pflag.ExitOnError)
	reset := fs.Bool("reset", false, "Clear the collection before indexing")
	batchSize := fs.Int("batch-size", indexer.DefaultBatchSize, "Chunks added to the index per batch")

	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if _, err := logging.Setup(cfg.LogLevel, os.Stderr, true); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(console.Title("Governance AI: Paper Ingestion"))

	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid chunking options")
	}

	clientConfig := cfg.ClientConfig()
	embedder, err := ai.NewEmbedder(ctx, clientConfig)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.EmbedProvider).Msg("failed to create embedder")
	}
	log.Info().Str("provider", cfg.EmbedProvider).Int("dim", embedder.Dim()).Msg("embedder ready")

	idx, err := store.Open(ctx, cfg.StoreOptions(), embedder)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.IndexBackend).Msg("failed to open index")
	}
	defer idx.Close()

	ix := indexer.New(idx, cfg.PaperPath, splitter)
	ix.Reset = *reset
	ix.BatchSize = *batchSize

	console.Status(os.Stdout, "Indexing %s (size=%d, overlap=%d)...", cfg.PaperPath, cfg.ChunkSize, cfg.ChunkOverlap)
	st, err := ix.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("paper_path", cfg.PaperPath).Msg("ingestion failed")
	}

	fmt.Println(console.Summary("Ingestion complete", []console.Row{
		{Key: "Documents", Value: strconv.Itoa(st.Documents)},
		{Key: "Chunks", Value: strconv.Itoa(st.Chunks)},
		{Key: "Indexed", Value: strconv.Itoa(st.Indexed)},
		{Key: "Failed", Value: strconv.Itoa(st.Failed)},
		{Key: "Collection", Value: fmt.Sprintf("%s (%d embeddings)", cfg.Collection, st.Count)},
	}))
	if st.Failed > 0 {
		console.Error(os.Stdout, "%d chunks could not be indexed; see the log for details", st.Failed)
	}
}
