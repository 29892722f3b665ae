package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/texts"
)

// unbanCallbackPrefix tags unban-button callback data.
const unbanCallbackPrefix = "unban:"

// NewBannedHandler returns a handler for the admin /banned command: a list of
// banned users with one unban button each.
func NewBannedHandler(deps HandlerDeps) bot.HandlerFunc {
	return bannedHandler{deps}.Handle
}

type bannedHandler struct {
	deps HandlerDeps
}

func (h bannedHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "banned")

	if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}
	chatID := update.Message.Chat.ID

	if err := renderBannedList(ctx, h.deps, chatID); err != nil {
		log.ErrorContext(ctx, "Failed to render banned list", "error", err, "chat_id", chatID)
	}
}

func renderBannedList(ctx context.Context, deps HandlerDeps, chatID int64) error {
	loc := deps.localizer(ctx, chatID, nil)

	banned, err := deps.Users.BannedUsers(ctx)
	if err != nil {
		return err
	}
	if len(banned) == 0 {
		return deps.Presenter.Render(ctx, chatID, loc.Get(texts.BannedListEmpty), presenter.Options{ReplacePrevious: true})
	}

	var sb strings.Builder
	sb.WriteString(loc.Get(texts.BannedListHeader))
	rows := make([][]models.InlineKeyboardButton, 0, len(banned))
	for _, rec := range banned {
		fmt.Fprintf(&sb, "\n- %s %s (<code>%d</code>)", rec.FullName, rec.Username, rec.ID)
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("🔓 %s (%d)", rec.FullName, rec.ID),
			CallbackData: unbanCallbackPrefix + strconv.FormatInt(rec.ID, 10),
		}})
	}
	return deps.Presenter.Render(ctx, chatID, sb.String(), presenter.Options{
		ReplacePrevious: true,
		ReplyMarkup:     models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// NewUnbanCallbackHandler returns a handler for unban buttons under the
// banned list.
func NewUnbanCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return unbanCallbackHandler{deps}.Handle
}

type unbanCallbackHandler struct {
	deps HandlerDeps
}

func (h unbanCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "unban_callback")

	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID}); err != nil {
		log.DebugContext(ctx, "Failed to answer callback query", "error", err)
	}

	userID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, unbanCallbackPrefix), 10, 64)
	if err != nil {
		log.WarnContext(ctx, "Malformed unban callback", "data", cb.Data)
		return
	}
	if err := unbanUser(ctx, h.deps, b, userID); err != nil {
		log.ErrorContext(ctx, "Failed to unban user", "user_id", userID, "error", err)
		return
	}
	if err := renderBannedList(ctx, h.deps, chatID); err != nil {
		log.ErrorContext(ctx, "Failed to refresh banned list", "error", err, "chat_id", chatID)
	}
}

// NewUnbanHandler returns a handler for the admin /unban <id> command.
func NewUnbanHandler(deps HandlerDeps) bot.HandlerFunc {
	return unbanHandler{deps}.Handle
}

type unbanHandler struct {
	deps HandlerDeps
}

func (h unbanHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "unban")

	if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}
	chatID := update.Message.Chat.ID
	loc := h.deps.localizer(ctx, chatID, nil)

	fields := strings.Fields(update.Message.Text)
	if len(fields) != 2 {
		if err := h.deps.Presenter.Render(ctx, chatID, loc.Get(texts.UnbanUsage), presenter.Options{ReplacePrevious: true}); err != nil {
			log.ErrorContext(ctx, "Failed to render usage", "error", err, "chat_id", chatID)
		}
		return
	}
	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		if err := h.deps.Presenter.Render(ctx, chatID, loc.Get(texts.UnbanUsage), presenter.Options{ReplacePrevious: true}); err != nil {
			log.ErrorContext(ctx, "Failed to render usage", "error", err, "chat_id", chatID)
		}
		return
	}

	if err := unbanUser(ctx, h.deps, b, userID); err != nil {
		log.ErrorContext(ctx, "Failed to unban user", "user_id", userID, "error", err)
		return
	}
	if err := h.deps.Presenter.Render(ctx, chatID, loc.Get(texts.UserUnblocked), presenter.Options{ReplacePrevious: true}); err != nil {
		log.ErrorContext(ctx, "Failed to render confirmation", "error", err, "chat_id", chatID)
	}
}

// unbanUser clears the ban flag and announces the change in the user's topic.
func unbanUser(ctx context.Context, deps HandlerDeps, b *bot.Bot, userID int64) error {
	rec, err := deps.Relay.Unban(ctx, userID)
	if err != nil {
		return err
	}
	if rec.MessageThreadID != nil {
		loc := texts.ForLanguage(deps.Config.Telegram.DefaultLanguage)
		topicReply(ctx, deps, b, *rec.MessageThreadID, loc.Get(texts.UserUnblocked))
	}
	return nil
}
