package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
)

// languageCallbackPrefix tags language-selection callback data.
const languageCallbackPrefix = "lang:"

func languageKeyboard() models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(texts.LanguageOrder))
	for _, code := range texts.LanguageOrder {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         texts.SupportedLanguages[code],
			CallbackData: languageCallbackPrefix + code,
		}})
	}
	return models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// NewLanguageHandler returns a handler for the /language command.
func NewLanguageHandler(deps HandlerDeps) bot.HandlerFunc {
	return languageHandler{deps}.Handle
}

type languageHandler struct {
	deps HandlerDeps
}

func (h languageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "language")

	if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}
	chatID := update.Message.Chat.ID

	loc := h.deps.localizer(ctx, chatID, nil)
	err := h.deps.Presenter.Render(ctx, chatID, loc.Get(texts.ChangeLanguage), presenter.Options{
		ReplacePrevious: true,
		ReplyMarkup:     languageKeyboard(),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to render language menu", "error", err, "chat_id", chatID)
	}
}

// NewLanguageCallbackHandler returns a handler for language-selection buttons.
func NewLanguageCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return languageCallbackHandler{deps}.Handle
}

type languageCallbackHandler struct {
	deps HandlerDeps
}

func (h languageCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "language_callback")

	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID
	code := texts.Resolve(strings.TrimPrefix(cb.Data, languageCallbackPrefix))

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID}); err != nil {
		log.DebugContext(ctx, "Failed to answer callback query", "error", err)
	}

	if err := h.deps.Sessions.SetLanguage(ctx, chatID, code); err != nil {
		log.ErrorContext(ctx, "Failed to store session language", "error", err, "chat_id", chatID)
		return
	}
	rec, err := h.deps.Users.Update(ctx, cb.From.ID, func(u *storage.UserRecord) {
		u.LanguageCode = code
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to persist language choice", "error", err, "user_id", cb.From.ID)
		return
	}

	if err := renderGreeting(ctx, h.deps, chatID, rec); err != nil {
		log.ErrorContext(ctx, "Failed to render greeting", "error", err, "chat_id", chatID)
	}
}
