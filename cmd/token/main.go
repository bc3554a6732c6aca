package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/auth"
	"github.com/seanblong/paperrag/internal/config"
	"github.com/seanblong/paperrag/internal/logging"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("paperrag-token", pflag.ExitOnError)
	ttl := fs.Duration("ttl", auth.DefaultTTL, "Token lifetime")
	name := fs.String("name", "", "Display name stored in the token")

	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if _, err := logging.Setup(cfg.LogLevel, os.Stderr, true); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	subject := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if subject == "" {
		fmt.Fprintln(os.Stderr, "usage: token [flags] <subject>")
		cfg.Usage()
		os.Exit(1)
	}
	if strings.TrimSpace(cfg.Auth.JwtSecret) == "" {
		log.Fatal().Msg("PAPERRAG_AUTH_JWT_SECRET is required to sign tokens")
	}

	auth.InitializeAuth(cfg.Auth.JwtSecret, true)
	token, err := auth.GenerateJWT(&auth.User{Subject: subject, Name: *name}, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate token")
	}
	log.Info().Str("subject", subject).Dur("ttl", *ttl).Msg("token issued")
	fmt.Println(token)
}
