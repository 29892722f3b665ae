package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/supportbot/internal/config"
	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/session"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/texts"
	"github.com/edgard/supportbot/internal/ticket"
)

// Delayer runs a function once after a delay. The scheduler implements it;
// handlers use it for deferred cleanup of transient notices.
type Delayer interface {
	After(name string, delay time.Duration, fn func(ctx context.Context))
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Users     *storage.UserStore
	Settings  *storage.SettingsStore
	FAQ       *storage.FAQStore
	Sessions  *session.Store
	Presenter *presenter.Manager
	Relay     *ticket.Relay
	Delayer   Delayer
}

// localizer resolves the conversation language: explicit session choice first,
// then the durable record, then the configured default.
func (d HandlerDeps) localizer(ctx context.Context, chatID int64, rec *storage.UserRecord) texts.Localizer {
	if code, ok, err := d.Sessions.Language(ctx, chatID); err == nil && ok {
		return texts.ForLanguage(code)
	}
	if rec != nil && rec.LanguageCode != "" {
		return texts.ForLanguage(rec.LanguageCode)
	}
	return texts.ForLanguage(d.Config.Telegram.DefaultLanguage)
}

// isOperatorGroup reports whether the chat is the configured operator group.
func (d HandlerDeps) isOperatorGroup(chatID int64) bool {
	return chatID == d.Config.Telegram.GroupID
}
