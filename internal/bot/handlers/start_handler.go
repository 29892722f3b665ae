package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
)

// NewStartHandler returns a handler for the /start command in user DMs.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	if update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}
	chatID := update.Message.Chat.ID

	rec, created, err := h.deps.Relay.EnsureUser(ctx, update.Message.From)
	if err != nil {
		log.ErrorContext(ctx, "Failed to ensure user record", "error", err, "user_id", update.Message.From.ID)
		return
	}

	if created {
		loc := texts.ForLanguage(h.deps.Config.Telegram.DefaultLanguage)
		notice := loc.Render(texts.UserStartedBot, map[string]string{"name": rec.FullName})
		if _, err := h.deps.Relay.NotifyThread(ctx, rec, notice); err != nil {
			log.ErrorContext(ctx, "Failed to announce new user", "error", err, "user_id", rec.ID)
		}
	}

	if h.deps.Config.Telegram.LanguagePromptEnabled && rec.LanguageCode == "" {
		loc := h.deps.localizer(ctx, chatID, rec)
		err := h.deps.Presenter.Render(ctx, chatID,
			loc.Render(texts.SelectLanguage, map[string]string{"full_name": rec.FullName}),
			presenter.Options{ReplacePrevious: true, ReplyMarkup: languageKeyboard()},
		)
		if err != nil {
			log.ErrorContext(ctx, "Failed to render language prompt", "error", err, "chat_id", chatID)
		}
		return
	}

	if err := renderGreeting(ctx, h.deps, chatID, rec); err != nil {
		log.ErrorContext(ctx, "Failed to render greeting", "error", err, "chat_id", chatID)
	}
}

// renderGreeting shows the main prompt, preferring the per-language override
// stored in settings.
func renderGreeting(ctx context.Context, deps HandlerDeps, chatID int64, rec *storage.UserRecord) error {
	loc := deps.localizer(ctx, chatID, rec)
	text, ok, err := deps.Settings.Get(ctx, storage.SettingGreeting, loc.Language())
	if err != nil {
		return err
	}
	if !ok {
		text = loc.Get(texts.MainMenu)
	}
	return deps.Presenter.Render(ctx, chatID, text, presenter.Options{ReplacePrevious: true})
}
