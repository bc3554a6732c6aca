package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/internal/config"
	"github.com/seanblong/paperrag/internal/console"
	"github.com/seanblong/paperrag/internal/logging"
	"github.com/seanblong/paperrag/internal/prompt"
	"github.com/seanblong/paperrag/internal/rag"
	"github.com/seanblong/paperrag/internal/repl"
	"github.com/seanblong/paperrag/internal/retrieval"
	"github.com/seanblong/paperrag/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("paperrag-ask", pflag.ExitOnError)
	interactive := fs.Bool("interactive", false, "Ask questions interactively")
	promptName := fs.String("prompt", prompt.DefaultName, "System prompt to use (name of a file in the prompts path)")

	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if _, err := logging.Setup(cfg.LogLevel, os.Stderr, true); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" && !*interactive {
		console.Error(os.Stderr, "Please provide a query or use --interactive mode")
		cfg.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system, err := prompt.Load(cfg.PromptsPath, *promptName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load system prompt")
	}

	clientConfig := cfg.ClientConfig()
	completer, err := ai.NewCompleter(ctx, clientConfig)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider).Msg("failed to create completion client")
	}
	embedder, err := ai.NewEmbedder(ctx, clientConfig)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.EmbedProvider).Msg("failed to create embedder")
	}
	idx, err := store.Open(ctx, cfg.StoreOptions(), embedder)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.IndexBackend).Msg("failed to open index")
	}
	defer idx.Close()

	p := rag.New(retrieval.NewService(idx, cfg.TopK), completer, system, cfg.MaxTokens)

	fmt.Println(console.Title("Governance AI: RAG Pipeline"))
	fmt.Println()

	if *interactive {
		fmt.Println(console.Dim("Interactive mode. Type 'quit' to exit."))
		err := repl.Run(ctx, os.Stdin, os.Stdout, console.Prompt(), func(ctx context.Context, line string) error {
			ans, err := p.Ask(ctx, line, cfg.TopK)
			if err != nil {
				return err
			}
			render(os.Stdout, ans)
			return nil
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to read input")
		}
		return
	}

	console.Status(os.Stdout, "Retrieving context for: %s", query)
	console.Status(os.Stdout, "Querying %s...", cfg.Provider)
	ans, err := p.Ask(ctx, query, cfg.TopK)
	if err != nil {
		console.Error(os.Stderr, "Error: %v", err)
		os.Exit(1)
	}
	fmt.Println(console.Dim(fmt.Sprintf("Retrieved %d relevant chunks", len(ans.Results))))
	render(os.Stdout, ans)
}

func render(w io.Writer, ans rag.Answer) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, console.Panel("Governance AI", ans.Text))
	if len(ans.Sources) > 0 {
		_, _ = fmt.Fprintln(w, console.Dim("Sources: "+strings.Join(ans.Sources, ", ")))
	}
	_, _ = fmt.Fprintln(w)
}
