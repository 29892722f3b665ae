package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/session"
	"github.com/edgard/supportbot/internal/texts"
	"github.com/edgard/supportbot/internal/ticket"
)

// confirmationTTL is how long the "message sent" notice stays in the user's
// chat before it is cleaned up.
const confirmationTTL = 30 * time.Second

// NewRouterHandler returns the default handler: everything that is not a
// registered command lands here. It relays user DMs into topics, topic
// messages back to users, answers edited messages, and tracks membership
// changes.
func NewRouterHandler(deps HandlerDeps) bot.HandlerFunc {
	return routerHandler{deps}.Handle
}

type routerHandler struct {
	deps HandlerDeps
}

func (h routerHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.Message != nil:
		h.handleMessage(ctx, b, update.Message)
	case update.EditedMessage != nil:
		h.handleEditedMessage(ctx, b, update.EditedMessage)
	case update.MyChatMember != nil:
		h.handleMembership(ctx, update.MyChatMember)
	}
}

func (h routerHandler) handleMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	switch {
	case msg.Chat.Type == models.ChatTypePrivate:
		h.handlePrivateMessage(ctx, b, msg)
	case h.deps.isOperatorGroup(msg.Chat.ID):
		h.handleGroupMessage(ctx, b, msg)
	}
}

func (h routerHandler) handlePrivateMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	log := h.deps.Logger.With("handler", "router")
	if msg.From == nil || msg.From.IsBot {
		return
	}
	chatID := msg.Chat.ID

	// Admin replies to a pending prompt complete the edit instead of opening
	// a ticket.
	if msg.From.ID == h.deps.Config.Telegram.AdminID {
		pending, err := h.deps.Sessions.Pending(ctx, chatID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to read pending input", "error", err, "chat_id", chatID)
			return
		}
		if pending != nil {
			if err := h.completePending(ctx, chatID, pending, msg); err != nil {
				log.ErrorContext(ctx, "Failed to complete pending input", "kind", pending.Kind, "error", err)
			}
			return
		}
	}

	rec, _, err := h.deps.Relay.EnsureUser(ctx, msg.From)
	if err != nil {
		log.ErrorContext(ctx, "Failed to ensure user record", "error", err, "user_id", msg.From.ID)
		return
	}

	res, err := h.deps.Relay.RelayUserMessage(ctx, rec, msg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to relay user message", "error", err, "user_id", rec.ID)
		loc := h.deps.localizer(ctx, chatID, rec)
		h.sendTransient(ctx, b, chatID, loc.Get(texts.MessageNotSent))
		return
	}
	if res.Banned || res.Blocked {
		return
	}

	loc := h.deps.localizer(ctx, chatID, res.User)
	confirmation := loc.Get(texts.MessageSent)
	if has, err := h.deps.FAQ.HasItems(ctx); err == nil && has {
		confirmation += "\n\n" + loc.Get(texts.FAQSuggestion)
	}
	h.sendTransient(ctx, b, chatID, confirmation)
}

// sendTransient sends a notice that cleans itself up after a short delay.
func (h routerHandler) sendTransient(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	sent, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send notice", "chat_id", chatID, "error", err)
		return
	}
	if h.deps.Delayer == nil {
		return
	}
	messageID := sent.ID
	h.deps.Delayer.After("delete_notice", confirmationTTL, func(ctx context.Context) {
		h.deps.Presenter.DeleteMessage(ctx, chatID, messageID)
	})
}

func (h routerHandler) handleGroupMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	log := h.deps.Logger.With("handler", "router")
	if msg.MessageThreadID == 0 || msg.From == nil || msg.From.IsBot {
		return
	}

	res, err := h.deps.Relay.RelayOperatorMessage(ctx, msg)
	if err != nil {
		if errors.Is(err, ticket.ErrUnknownThread) {
			return
		}
		log.ErrorContext(ctx, "Failed to relay operator message", "thread_id", msg.MessageThreadID, "error", err)
		loc := texts.ForLanguage(h.deps.Config.Telegram.DefaultLanguage)
		topicReply(ctx, h.deps, b, msg.MessageThreadID, loc.Get(texts.MessageNotSent))
		return
	}

	loc := texts.ForLanguage(h.deps.Config.Telegram.DefaultLanguage)
	switch {
	case res.Unreachable:
		topicReply(ctx, h.deps, b, msg.MessageThreadID, loc.Get(texts.BlockedByUser))
	case res.Banned:
		topicReply(ctx, h.deps, b, msg.MessageThreadID, loc.Get(texts.MessageNotSent))
	}
}

// handleEditedMessage tells the user an edit stayed local. Edits are never
// re-relayed to the operators.
func (h routerHandler) handleEditedMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	if msg.Chat.Type != models.ChatTypePrivate || msg.From == nil || msg.From.IsBot {
		return
	}
	if msg.From.ID == h.deps.Config.Telegram.AdminID {
		return
	}
	loc := h.deps.localizer(ctx, msg.Chat.ID, nil)
	h.sendTransient(ctx, b, msg.Chat.ID, loc.Get(texts.MessageEdited))
}

func (h routerHandler) handleMembership(ctx context.Context, upd *models.ChatMemberUpdated) {
	log := h.deps.Logger.With("handler", "router")
	if upd.Chat.Type != models.ChatTypePrivate {
		return
	}

	var state string
	switch upd.NewChatMember.Type {
	case models.ChatMemberTypeMember:
		state = "member"
	case models.ChatMemberTypeBanned:
		state = "kicked"
	case models.ChatMemberTypeLeft:
		state = "left"
	default:
		return
	}

	rec, changed, err := h.deps.Relay.SetMembershipState(ctx, upd.From.ID, state)
	if err != nil {
		log.ErrorContext(ctx, "Failed to record membership change", "user_id", upd.From.ID, "error", err)
		return
	}
	if !changed || rec.MessageThreadID == nil {
		return
	}

	loc := texts.ForLanguage(h.deps.Config.Telegram.DefaultLanguage)
	key := texts.UserStoppedBot
	if state == "member" {
		key = texts.UserRestartedBot
	}
	notice := loc.Render(key, map[string]string{"name": rec.FullName})
	if _, err := h.deps.Relay.NotifyThread(ctx, rec, notice); err != nil {
		log.ErrorContext(ctx, "Failed to post membership notice", "user_id", rec.ID, "error", err)
	}
}

func (h routerHandler) completePending(ctx context.Context, chatID int64, pending *session.Pending, msg *models.Message) error {
	switch pending.Kind {
	case pendingGreeting, pendingClosing:
		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		return completeOverride(ctx, h.deps, chatID, pending, text)
	case pendingFAQTitle, pendingFAQContent, pendingFAQRename:
		return completeFAQInput(ctx, h.deps, chatID, pending, msg)
	}
	return h.deps.Sessions.ClearPending(ctx, chatID)
}
