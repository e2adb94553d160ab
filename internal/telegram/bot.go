package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"compinvest/internal/analysis"
	"compinvest/internal/openai"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
	log zerolog.Logger
}

// NewBot registers the webhook and wires the command handlers.
// commentator may be nil.
func NewBot(token, webhookURL string, runner *analysis.Runner, commentator *openai.Commentator) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("component", "telegram").Logger()

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	logger.Info().Str("url", webhookURL).Msg("webhook set")

	return &Bot{api: api, h: NewHandlers(api, runner, commentator), log: logger}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message != nil {
		b.log.Debug().Int64("chat_id", update.Message.Chat.ID).Str("text", update.Message.Text).Msg("update")
		go b.h.HandleMessage(update.Message)
	} else {
		b.log.Debug().Msg("non-message update received")
	}
	w.WriteHeader(http.StatusOK)
}
