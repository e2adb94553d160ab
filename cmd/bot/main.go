package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"compinvest/internal/analysis"
	"compinvest/internal/config"
	"compinvest/internal/openai"
	"compinvest/internal/server"
	"compinvest/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.SetupLogger("info")
		log.Fatal().Err(err).Msg("config")
	}
	config.SetupLogger(cfg.LogLevel)
	if err := cfg.RequireBot(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, closeDB, err := analysis.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("setup")
	}
	defer closeDB()

	var commentator *openai.Commentator
	if cfg.OpenAIKey != "" {
		commentator = openai.NewCommentator(cfg.OpenAIKey)
	} else {
		log.Info().Msg("OPENAI_API_KEY not set, replies carry no commentary")
	}

	tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, runner, commentator)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}
	log.Info().Str("webhook", cfg.WebhookPublicURL).Str("source", cfg.PriceSource).Msg("telegram: bot initialized")

	router := server.NewRouter(tg.WebhookHandler)
	if err := server.ListenAndServe(ctx, ":"+cfg.Port, router); err != nil {
		log.Error().Err(err).Msg("server error")
		closeDB()
		os.Exit(1)
	}
}
