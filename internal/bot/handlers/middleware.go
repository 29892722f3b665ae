// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jellydator/ttlcache/v3"
)

// AdminOnly creates a middleware that drops updates not coming from the
// configured admin user.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			from := updateSender(update)
			if from == nil {
				return
			}
			if from.ID != deps.Config.Telegram.AdminID {
				deps.Logger.WarnContext(ctx, "Unauthorized admin command", "user_id", from.ID)
				return
			}
			next(ctx, b, update)
		}
	}
}

// Throttle creates a middleware that silently drops updates from a sender
// arriving within the debounce window of the previous one. Each middleware
// instance keeps its own window, so distinct handlers never throttle each
// other.
func Throttle(deps HandlerDeps, key string) tgbot.Middleware {
	window := deps.Config.Security.ThrottleWindow
	if window <= 0 {
		window = 50 * time.Millisecond
	}
	// No janitor goroutine: Get treats expired entries as absent, and the
	// key space is bounded by active senders.
	cache := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](window),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			from := updateSender(update)
			if from == nil {
				next(ctx, b, update)
				return
			}
			cacheKey := fmt.Sprintf("%s:%d", key, from.ID)
			if cache.Get(cacheKey) != nil {
				deps.Logger.DebugContext(ctx, "Throttled update", "key", cacheKey)
				return
			}
			cache.Set(cacheKey, struct{}{}, ttlcache.DefaultTTL)
			next(ctx, b, update)
		}
	}
}

func updateSender(update *models.Update) *models.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.EditedMessage != nil:
		return update.EditedMessage.From
	case update.CallbackQuery != nil:
		return &update.CallbackQuery.From
	}
	return nil
}
