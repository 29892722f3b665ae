// Package main contains the entrypoint for the support bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/supportbot/internal/bot"
	"github.com/edgard/supportbot/internal/bot/handlers"
	"github.com/edgard/supportbot/internal/bot/tasks"
	"github.com/edgard/supportbot/internal/config"
	"github.com/edgard/supportbot/internal/logger"
	"github.com/edgard/supportbot/internal/migrations"
	"github.com/edgard/supportbot/internal/presenter"
	"github.com/edgard/supportbot/internal/session"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/telegram"
	"github.com/edgard/supportbot/internal/ticket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components, applies pending data
// migrations, and blocks until shutdown. Returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	rdb, err := storage.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
		return 1
	}
	defer storage.Close(rdb, log)

	users := storage.NewUserStore(rdb, log)
	settings := storage.NewSettingsStore(rdb)
	faq := storage.NewFAQStore(rdb)
	sessions := session.NewStore(rdb)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Users:    users,
		Settings: settings,
		FAQ:      faq,
		Sessions: sessions,
	}

	// The router needs the presenter and relay, which in turn need the bot
	// instance, so the default handler is bound after full wiring below.
	var router tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if router != nil {
				router(ctx, b, update)
			}
		}),
		tgbot.WithAllowedUpdates([]string{"message", "edited_message", "callback_query", "my_chat_member"}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	hDeps.Presenter = presenter.NewManager(tg, sessions, log)
	hDeps.Relay = ticket.NewRelay(users, settings, tg, cfg, log)

	// Data migrations run to completion before the bot starts polling.
	runner := migrations.NewRunner(rdb, users, tg, cfg.Telegram.GroupID, log)
	if err := runner.Run(ctx); err != nil {
		log.Error("Failed to apply data migrations", "error", err)
		return 1
	}

	if err := bot.SetupCommands(ctx, tg, cfg, log); err != nil {
		log.Error("Failed to publish command menus", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Config: cfg,
		Users:  users,
		Relay:  hDeps.Relay,
	}
	sched, err := bot.NewScheduler(log, &cfg.Reminders, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	hDeps.Delayer = sched
	router = handlers.NewRouterHandler(hDeps)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, rdb, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
