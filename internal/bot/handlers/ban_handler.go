package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/texts"
	"github.com/edgard/supportbot/internal/ticket"
)

// topicMessage reports whether the update is a message inside a forum topic
// of the operator group, and returns the thread id.
func topicMessage(deps HandlerDeps, update *models.Update) (int, bool) {
	if update.Message == nil || !deps.isOperatorGroup(update.Message.Chat.ID) {
		return 0, false
	}
	if update.Message.MessageThreadID == 0 {
		return 0, false
	}
	return update.Message.MessageThreadID, true
}

// topicReply posts an operator-facing notice into the topic the command came
// from. Operator notices always use the default language.
func topicReply(ctx context.Context, deps HandlerDeps, b *bot.Bot, threadID int, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          deps.Config.Telegram.GroupID,
		MessageThreadID: threadID,
		Text:            text,
		ParseMode:       models.ParseModeHTML,
	})
	if err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to post topic notice", "thread_id", threadID, "error", err)
	}
}

// NewBanHandler returns a handler for the /ban command in ticket topics.
func NewBanHandler(deps HandlerDeps) bot.HandlerFunc {
	return banHandler{deps}.Handle
}

type banHandler struct {
	deps HandlerDeps
}

func (h banHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "ban")

	threadID, ok := topicMessage(h.deps, update)
	if !ok {
		return
	}

	rec, err := h.deps.Relay.ToggleBan(ctx, threadID)
	if err != nil {
		if errors.Is(err, ticket.ErrUnknownThread) {
			return
		}
		log.ErrorContext(ctx, "Failed to toggle ban", "thread_id", threadID, "error", err)
		return
	}

	loc := texts.ForLanguage(h.deps.Config.Telegram.DefaultLanguage)
	notice := loc.Get(texts.UserUnblocked)
	if rec.IsBanned {
		notice = loc.Get(texts.UserBlocked)
	}
	topicReply(ctx, h.deps, b, threadID, notice)
}
