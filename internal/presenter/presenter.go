// Package presenter maintains the "last bot message per conversation"
// pointer and collapses the edit/delete/send failure matrix behind one
// Render call: after Render returns successfully, the tracked id always
// refers to a live message with the latest content.
package presenter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/session"
)

// placeholderEmoji replaces a message that can be neither deleted nor kept.
const placeholderEmoji = "💎"

// Telegram reports these failure classes in the error description. They are
// transient-recoverable: the message is gone, unchanged, or frozen, and the
// render path falls back instead of surfacing them.
var (
	editErrors = []string{
		"message can't be edited",
		"message is not modified",
		"message to edit not found",
	}
	deleteGoneErrors = []string{
		"message to delete not found",
	}
	deleteFrozenErrors = []string{
		"message can't be deleted",
	}
)

func matchesAny(err error, descriptions []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, description := range descriptions {
		if strings.Contains(msg, description) {
			return true
		}
	}
	return false
}

// Transport is the slice of the chat SDK the presenter needs. *bot.Bot
// satisfies it.
type Transport interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// Options controls a single Render call.
type Options struct {
	// ReplacePrevious deletes the tracked message and sends a new one instead
	// of editing in place.
	ReplacePrevious    bool
	ReplyMarkup        models.ReplyMarkup
	DisableLinkPreview bool
}

// Manager renders bot messages into conversations, tracking one current
// message id per chat in the session store.
type Manager struct {
	transport Transport
	sessions  *session.Store
	logger    *slog.Logger
}

// NewManager creates a presentation manager.
func NewManager(transport Transport, sessions *session.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		transport: transport,
		sessions:  sessions,
		logger:    logger.With("component", "presenter"),
	}
}

// Render delivers content to the chat. With a previous tracked message and
// ReplacePrevious unset it edits in place; an edit failure classified as
// "not editable" falls back to delete-then-send. With ReplacePrevious set it
// always deletes the previous message first. Unknown transport failures are
// propagated unchanged.
func (m *Manager) Render(ctx context.Context, chatID int64, text string, opts Options) error {
	previousID, hasPrevious, err := m.sessions.LastMessageID(ctx, chatID)
	if err != nil {
		return err
	}

	if !opts.ReplacePrevious && hasPrevious {
		params := &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: previousID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		}
		if markup, ok := opts.ReplyMarkup.(models.InlineKeyboardMarkup); ok {
			params.ReplyMarkup = markup
		}
		if opts.DisableLinkPreview {
			params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
		}

		_, err := m.transport.EditMessageText(ctx, params)
		if err == nil {
			return m.sessions.SetLastMessageID(ctx, chatID, previousID)
		}
		if !matchesAny(err, editErrors) {
			return fmt.Errorf("failed to edit message %d in chat %d: %w", previousID, chatID, err)
		}
		if err := m.DeletePrevious(ctx, chatID); err != nil {
			return err
		}
	}

	if opts.ReplacePrevious {
		if err := m.DeletePrevious(ctx, chatID); err != nil {
			return err
		}
	}

	params := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: opts.ReplyMarkup,
	}
	if opts.DisableLinkPreview {
		params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
	}

	message, err := m.transport.SendMessage(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return m.sessions.SetLastMessageID(ctx, chatID, message.ID)
}

// DeletePrevious removes the tracked message for the chat. A message that is
// already gone is not an error. A message the transport refuses to delete is
// blanked to a placeholder instead, so stale content never lingers.
func (m *Manager) DeletePrevious(ctx context.Context, chatID int64) error {
	messageID, ok, err := m.sessions.LastMessageID(ctx, chatID)
	if err != nil || !ok {
		return err
	}

	_, err = m.transport.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	switch {
	case err == nil, matchesAny(err, deleteGoneErrors):
	case matchesAny(err, deleteFrozenErrors):
		_, editErr := m.transport.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      placeholderEmoji,
		})
		if editErr != nil && !matchesAny(editErr, editErrors) {
			return fmt.Errorf("failed to blank undeletable message %d in chat %d: %w", messageID, chatID, editErr)
		}
	default:
		return fmt.Errorf("failed to delete message %d in chat %d: %w", messageID, chatID, err)
	}

	return m.sessions.ClearLastMessageID(ctx, chatID)
}

// DeleteMessage removes an arbitrary message, ignoring already-gone failures.
func (m *Manager) DeleteMessage(ctx context.Context, chatID int64, messageID int) {
	_, err := m.transport.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	if err != nil && !matchesAny(err, deleteGoneErrors) && !matchesAny(err, deleteFrozenErrors) {
		m.logger.WarnContext(ctx, "Failed to delete message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}
