package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/texts"
	"github.com/edgard/supportbot/internal/ticket"
)

// NewSilentHandler returns a handler for the /silent command in ticket topics.
func NewSilentHandler(deps HandlerDeps) bot.HandlerFunc {
	return silentHandler{deps}.Handle
}

type silentHandler struct {
	deps HandlerDeps
}

func (h silentHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "silent")

	threadID, ok := topicMessage(h.deps, update)
	if !ok {
		return
	}

	rec, err := h.deps.Relay.ToggleSilent(ctx, threadID)
	if err != nil {
		if errors.Is(err, ticket.ErrUnknownThread) {
			return
		}
		log.ErrorContext(ctx, "Failed to toggle silent mode", "thread_id", threadID, "error", err)
		return
	}

	loc := texts.ForLanguage(h.deps.Config.Telegram.DefaultLanguage)
	notice := loc.Get(texts.SilentModeDisabled)
	if rec.MessageSilentMode {
		notice = loc.Get(texts.SilentModeEnabled)
	}
	topicReply(ctx, h.deps, b, threadID, notice)
}
