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
	"github.com/seanblong/paperrag/internal/config"
	"github.com/seanblong/paperrag/internal/console"
	"github.com/seanblong/paperrag/internal/eval"
	"github.com/seanblong/paperrag/internal/logging"
	"github.com/seanblong/paperrag/internal/prompt"
	"github.com/seanblong/paperrag/pkg/models"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("paperrag-evaluate", pflag.ExitOnError)
	datasetPath := fs.String("dataset", "", "Path to the alignment evaluation dataset (.jsonl, required)")
	systemPromptPath := fs.String("system-prompt", "", "System prompt file to test (default: the main prompt)")
	maxEvals := fs.Int("max-evals", 0, "Max evaluations to run (0 = all)")
	output := fs.String("output", "", "Output file for results")

	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if _, err := logging.Setup(cfg.LogLevel, os.Stderr, true); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	if *datasetPath == "" {
		log.Fatal().Msg("--dataset is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer, err := ai.NewCompleter(ctx, cfg.ClientConfig())
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider).Msg("failed to create completion client")
	}

	system, err := loadSystemPrompt(cfg.PromptsPath, *systemPromptPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load system prompt")
	}

	rows, err := readDataset(*datasetPath)
	if err != nil {
		log.Fatal().Err(err).Str("dataset", *datasetPath).Msg("failed to load dataset")
	}
	if *maxEvals > 0 && len(rows) > *maxEvals {
		rows = rows[:*maxEvals]
	}

	fmt.Println(console.Title("Governance AI: Alignment Evaluation"))
	console.Status(os.Stdout, "Running %d evaluations with %s...", len(rows), cfg.Provider)

	ev := eval.New(completer, system)
	ev.OnRecord = func(rec models.EvalRecord) {
		fmt.Printf("  %s score: %d/%d %s\n", rec.ID, rec.TotalScore, eval.MaxScore, console.Verdict(rec.OverallPass))
	}
	records, sum, err := ev.Run(ctx, rows)
	if err != nil {
		log.Error().Err(err).Msg("evaluation stopped early")
	}

	if sum.Evaluated > 0 {
		fmt.Println(console.Summary("Evaluation Summary", []console.Row{
			{Key: "Total evaluated", Value: strconv.Itoa(sum.Evaluated)},
			{Key: "Passed", Value: strconv.Itoa(sum.Passed)},
			{Key: "Pass rate", Value: fmt.Sprintf("%.1f%%", sum.PassRate()*100)},
			{Key: "Avg score", Value: fmt.Sprintf("%.1f/%d", sum.MeanScore(), eval.MaxScore)},
			{Key: "Skipped", Value: strconv.Itoa(sum.Skipped)},
		}))
	} else {
		console.Error(os.Stdout, "No evaluations completed (%d skipped)", sum.Skipped)
	}

	if *output != "" {
		if err := writeResults(*output, records); err != nil {
			log.Fatal().Err(err).Str("output", *output).Msg("failed to write results")
		}
		console.Status(os.Stdout, "Results saved to %s", *output)
	}
}

func loadSystemPrompt(dir, path string) (string, error) {
	if path == "" {
		return prompt.Load(dir, prompt.DefaultName)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readDataset(path string) ([]models.EvalRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("dataset", path).Msg("failed to close dataset")
		}
	}()
	return eval.LoadDataset(f)
}

func writeResults(path string, records []models.EvalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := eval.WriteResults(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
