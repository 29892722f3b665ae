package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/texts"
	"github.com/edgard/supportbot/internal/ticket"
)

// NewResolveHandler returns a handler for the /resolve command: close the
// ticket and tell the user.
func NewResolveHandler(deps HandlerDeps) bot.HandlerFunc {
	return resolveHandler{deps: deps, quiet: false}.Handle
}

// NewResolveQuietHandler returns a handler for the /resolvequiet command:
// close the ticket without messaging the user.
func NewResolveQuietHandler(deps HandlerDeps) bot.HandlerFunc {
	return resolveHandler{deps: deps, quiet: true}.Handle
}

type resolveHandler struct {
	deps  HandlerDeps
	quiet bool
}

func (h resolveHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "resolve", "quiet", h.quiet)

	threadID, ok := topicMessage(h.deps, update)
	if !ok {
		return
	}

	if _, err := h.deps.Relay.Resolve(ctx, threadID, h.quiet); err != nil {
		if errors.Is(err, ticket.ErrUnknownThread) {
			return
		}
		log.ErrorContext(ctx, "Failed to resolve ticket", "thread_id", threadID, "error", err)
		return
	}

	loc := texts.ForLanguage(h.deps.Config.Telegram.DefaultLanguage)
	topicReply(ctx, h.deps, b, threadID, loc.Get(texts.TicketResolved))
}
