package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/internal/config"
	"github.com/seanblong/paperrag/internal/console"
	"github.com/seanblong/paperrag/internal/dataset"
	"github.com/seanblong/paperrag/internal/loader"
	"github.com/seanblong/paperrag/internal/logging"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("paperrag-generate", pflag.ExitOnError)
	output := fs.String("output", "", "Output directory for generated datasets (required)")
	pairs := fs.Int("pairs-per-section", dataset.DefaultPairsPerSection, "Q&A pairs to generate per section")
	maxSections := fs.Int("max-sections", 0, "Max sections to process (0 = all)")

	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if _, err := logging.Setup(cfg.LogLevel, os.Stderr, true); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	if *output == "" {
		log.Fatal().Msg("--output is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer, err := ai.NewCompleter(ctx, cfg.ClientConfig())
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider).Msg("failed to create completion client")
	}

	fmt.Println(console.Title("Governance AI: Dataset Generation"))
	console.Status(os.Stdout, "Loading paper from %s...", cfg.PaperPath)

	docs, err := loader.New(cfg.PaperPath).Load()
	if err != nil {
		log.Fatal().Err(err).Str("paper_path", cfg.PaperPath).Msg("failed to load paper")
	}
	sections := loader.Sections(docs, loader.DefaultSectionOptions)
	if *maxSections > 0 && len(sections) > *maxSections {
		sections = sections[:*maxSections]
	}
	console.Status(os.Stdout, "Found %d sections to process", len(sections))

	if err := os.MkdirAll(*output, 0o755); err != nil {
		log.Fatal().Err(err).Str("output", *output).Msg("failed to create output directory")
	}
	path := filepath.Join(*output, dataset.OutputFile)
	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Str("output", path).Msg("failed to create dataset file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("output", path).Msg("failed to close dataset file")
		}
	}()

	gen := dataset.New(completer, *pairs)
	gen.MaxTokens = cfg.MaxTokens
	st, err := gen.Run(ctx, sections, f)
	if err != nil {
		log.Error().Err(err).Msg("generation stopped early")
	}

	fmt.Println(console.Summary("Dataset generation", []console.Row{
		{Key: "Sections", Value: strconv.Itoa(st.Sections)},
		{Key: "Failed", Value: strconv.Itoa(st.Failed)},
		{Key: "Pairs", Value: strconv.Itoa(st.Pairs)},
		{Key: "Output", Value: path},
	}))
}
