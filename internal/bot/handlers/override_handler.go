package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/session"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
)

// Pending-input kinds stored in the session while the admin is editing.
const (
	pendingGreeting   = "greeting"
	pendingClosing    = "closing"
	pendingFAQTitle   = "faq_title"
	pendingFAQContent = "faq_content"
	pendingFAQRename  = "faq_rename"
)

// NewGreetingHandler returns a handler for the admin /greeting command.
func NewGreetingHandler(deps HandlerDeps) bot.HandlerFunc {
	return overrideHandler{deps: deps, kind: pendingGreeting, category: storage.SettingGreeting}.Handle
}

// NewClosingHandler returns a handler for the admin /closing command.
func NewClosingHandler(deps HandlerDeps) bot.HandlerFunc {
	return overrideHandler{deps: deps, kind: pendingClosing, category: storage.SettingResolvedMessage}.Handle
}

// overrideHandler starts an edit of a per-language text override. The command
// takes an optional language argument: /greeting ru.
type overrideHandler struct {
	deps     HandlerDeps
	kind     string
	category storage.SettingsCategory
}

func (h overrideHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.kind)

	if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}
	chatID := update.Message.Chat.ID

	language := h.deps.Config.Telegram.DefaultLanguage
	if fields := strings.Fields(update.Message.Text); len(fields) > 1 {
		language = texts.Resolve(fields[1])
	}

	if err := h.deps.Sessions.SetPending(ctx, chatID, session.Pending{Kind: h.kind, Arg: language}); err != nil {
		log.ErrorContext(ctx, "Failed to store pending input", "error", err, "chat_id", chatID)
		return
	}

	loc := h.deps.localizer(ctx, chatID, nil)
	prompt := loc.Render(texts.OverridePrompt, map[string]string{
		"category": h.kind,
		"language": language,
	})
	if err := h.deps.Presenter.Render(ctx, chatID, prompt, presenter.Options{ReplacePrevious: true}); err != nil {
		log.ErrorContext(ctx, "Failed to render override prompt", "error", err, "chat_id", chatID)
	}
}

// completeOverride stores or resets the override once the admin has replied
// to the prompt.
func completeOverride(ctx context.Context, deps HandlerDeps, chatID int64, pending *session.Pending, text string) error {
	category := storage.SettingGreeting
	if pending.Kind == pendingClosing {
		category = storage.SettingResolvedMessage
	}

	loc := deps.localizer(ctx, chatID, nil)
	confirmation := loc.Get(texts.OverrideSaved)
	if strings.TrimSpace(text) == "-" {
		if err := deps.Settings.Reset(ctx, category, pending.Arg); err != nil {
			return err
		}
		confirmation = loc.Get(texts.OverrideReset)
	} else {
		if err := deps.Settings.Set(ctx, category, pending.Arg, text); err != nil {
			return err
		}
	}

	if err := deps.Sessions.ClearPending(ctx, chatID); err != nil {
		return err
	}
	return deps.Presenter.Render(ctx, chatID, confirmation, presenter.Options{ReplacePrevious: true})
}
