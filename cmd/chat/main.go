package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/internal/chat"
	"github.com/seanblong/paperrag/internal/config"
	"github.com/seanblong/paperrag/internal/console"
	"github.com/seanblong/paperrag/internal/logging"
	"github.com/seanblong/paperrag/internal/prompt"
	"github.com/seanblong/paperrag/internal/repl"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("paperrag-chat", pflag.ExitOnError)
	promptName := fs.String("prompt", prompt.DefaultName, "System prompt to use (name of a file in the prompts path)")

	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if _, err := logging.Setup(cfg.LogLevel, os.Stderr, true); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer, err := ai.NewCompleter(ctx, cfg.ClientConfig())
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider).Msg("failed to create completion client")
	}
	system, err := prompt.Load(cfg.PromptsPath, *promptName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load system prompt")
	}

	session := chat.NewSession(completer, system, cfg.MaxTokens)

	fmt.Println(console.Title(fmt.Sprintf("Governance AI: %s (%s)", cfg.Provider, *promptName)))
	fmt.Println(console.Dim("Training AIs to discover love as the best way to survive and flourish"))
	fmt.Println()

	if query := strings.TrimSpace(strings.Join(fs.Args(), " ")); query != "" {
		reply, err := session.Send(ctx, query)
		if err != nil {
			console.Error(os.Stderr, "Error: %v", err)
			os.Exit(1)
		}
		fmt.Println(console.Panel("Governance AI", reply))
		return
	}

	fmt.Println(console.Dim("Type 'quit' to exit."))
	err = repl.Run(ctx, os.Stdin, os.Stdout, console.Prompt(), func(ctx context.Context, line string) error {
		reply, err := session.Send(ctx, line)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(console.Panel("Governance AI", reply))
		fmt.Println()
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to read input")
	}
	log.Debug().Int("messages", session.Conversation.Len()).Msg("conversation closed")
	fmt.Println(console.Dim("Session ended."))
}
