package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/config"
	"github.com/edgard/supportbot/internal/texts"
)

// User-facing command descriptions per language. Operator and admin menus use
// the default language only.
var userCommands = map[string][]models.BotCommand{
	"en": {
		{Command: "start", Description: "Restart the conversation"},
		{Command: "language", Description: "Change language"},
		{Command: "faq", Description: "Frequently asked questions"},
	},
	"ru": {
		{Command: "start", Description: "Перезапустить диалог"},
		{Command: "language", Description: "Сменить язык"},
		{Command: "faq", Description: "Часто задаваемые вопросы"},
	},
}

var groupCommands = []models.BotCommand{
	{Command: "ban", Description: "Block or unblock the user"},
	{Command: "silent", Description: "Toggle silent mode"},
	{Command: "information", Description: "Show user information"},
	{Command: "resolve", Description: "Resolve the ticket"},
	{Command: "resolvequiet", Description: "Resolve without messaging the user"},
}

var adminCommands = []models.BotCommand{
	{Command: "banned", Description: "List banned users"},
	{Command: "unban", Description: "Unban a user by id"},
	{Command: "greeting", Description: "Edit the greeting text"},
	{Command: "closing", Description: "Edit the resolution text"},
	{Command: "faq", Description: "Manage FAQ items"},
}

// SetupCommands publishes the command menus for users, the operator group,
// and the admin DM. The user menus are best effort per language; a failure to
// publish the group or admin menu is fatal since the operator surface would
// be unusable.
func SetupCommands(ctx context.Context, b *tgbot.Bot, cfg *config.Config, logger *slog.Logger) error {
	log := logger.With("component", "commands")

	for _, language := range texts.LanguageOrder {
		commands, ok := userCommands[language]
		if !ok {
			continue
		}
		params := &tgbot.SetMyCommandsParams{
			Commands:     commands,
			Scope:        &models.BotCommandScopeAllPrivateChats{},
			LanguageCode: language,
		}
		if language == texts.DefaultLanguage {
			params.LanguageCode = ""
		}
		if _, err := b.SetMyCommands(ctx, params); err != nil {
			log.WarnContext(ctx, "Failed to publish user command menu", "language", language, "error", err)
		}
	}

	if _, err := b.SetMyCommands(ctx, &tgbot.SetMyCommandsParams{
		Commands: groupCommands,
		Scope:    &models.BotCommandScopeChat{ChatID: cfg.Telegram.GroupID},
	}); err != nil {
		return fmt.Errorf("failed to publish group command menu: %w", err)
	}

	if _, err := b.SetMyCommands(ctx, &tgbot.SetMyCommandsParams{
		Commands: adminCommands,
		Scope:    &models.BotCommandScopeChat{ChatID: cfg.Telegram.AdminID},
	}); err != nil {
		return fmt.Errorf("failed to publish admin command menu: %w", err)
	}

	log.InfoContext(ctx, "Command menus published")
	return nil
}
