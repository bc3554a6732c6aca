package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/internal/auth"
	"github.com/seanblong/paperrag/internal/config"
	"github.com/seanblong/paperrag/internal/logging"
	"github.com/seanblong/paperrag/internal/prompt"
	"github.com/seanblong/paperrag/internal/rag"
	"github.com/seanblong/paperrag/internal/retrieval"
	"github.com/seanblong/paperrag/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("paperrag-api", pflag.ExitOnError)
	promptName := fs.String("prompt", prompt.DefaultName, "System prompt used to answer /ask")

	// Load configuration
	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set up logging
	logger, err := logging.Setup(cfg.LogLevel, os.Stdout, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	logger.Info().Str("provider", cfg.Provider).Str("embed_provider", cfg.EmbedProvider).Str("backend", cfg.IndexBackend).Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting paperrag api")

	// Initialize auth with configuration
	auth.InitializeAuth(cfg.Auth.JwtSecret, cfg.Auth.Enabled)
	if auth.IsAuthEnabled() {
		logger.Info().Msg("authentication is ENABLED")
	} else {
		logger.Warn().Msg("authentication is DISABLED - running in open mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clientConfig := cfg.ClientConfig()
	completer, err := ai.NewCompleter(ctx, clientConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create completion client")
	}
	embedder, err := ai.NewEmbedder(ctx, clientConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create embedder")
	}
	logger.Info().Int("embedding_dim", embedder.Dim()).Str("embed_provider", cfg.EmbedProvider).Msg("AI clients initialized")

	idx, err := store.Open(ctx, cfg.StoreOptions(), embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open index")
	}
	defer idx.Close()

	if n, err := idx.Count(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to count collection")
	} else if n == 0 {
		logger.Warn().Str("collection", cfg.Collection).Msg("collection is empty; run ingest first")
	}

	system, err := prompt.Load(cfg.PromptsPath, *promptName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load system prompt")
	}

	health, _ := idx.(pinger)

	p := rag.New(retrieval.NewService(idx, cfg.TopK), completer, system, cfg.MaxTokens)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: newHandler(logger, p, health), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("api server stopped")
}
