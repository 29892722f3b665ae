package handlers

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
)

// NewInformationHandler returns a handler for the /information command in
// ticket topics.
func NewInformationHandler(deps HandlerDeps) bot.HandlerFunc {
	return informationHandler{deps}.Handle
}

type informationHandler struct {
	deps HandlerDeps
}

func (h informationHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "information")

	threadID, ok := topicMessage(h.deps, update)
	if !ok {
		return
	}

	rec, err := h.deps.Users.ByThreadID(ctx, threadID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up user by thread", "thread_id", threadID, "error", err)
		return
	}
	if rec == nil {
		return
	}

	loc := texts.ForLanguage(h.deps.Config.Telegram.DefaultLanguage)
	status := loc.Get(texts.TicketStatusOpen)
	if rec.TicketStatus == storage.TicketResolved {
		status = loc.Get(texts.TicketStatusResolved)
	}
	topicReply(ctx, h.deps, b, threadID, loc.Render(texts.UserInformation, map[string]string{
		"id":         strconv.FormatInt(rec.ID, 10),
		"full_name":  rec.FullName,
		"state":      rec.State + " / " + status,
		"username":   rec.Username,
		"is_banned":  strconv.FormatBool(rec.IsBanned),
		"created_at": rec.CreatedAt.Format("2006-01-02 15:04:05 MST"),
	}))
}
