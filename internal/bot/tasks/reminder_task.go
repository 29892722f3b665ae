package tasks

import (
	"context"
	"time"

	"github.com/edgard/supportbot/internal/texts"
)

// newSupportReminderTask creates the task that nudges operators about tickets
// still awaiting a reply after the configured threshold.
func newSupportReminderTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "support_reminder")

	return func(ctx context.Context) error {
		threshold := time.Now().UTC().Add(-deps.Config.Reminders.After)
		loc := texts.ForLanguage(deps.Config.Telegram.DefaultLanguage)

		ids, err := deps.Users.AllIDs(ctx)
		if err != nil {
			return err
		}

		reminded := 0
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}

			rec, err := deps.Users.Get(ctx, id)
			if err != nil {
				return err
			}
			if rec == nil || rec.IsBanned || !rec.AwaitingReply {
				continue
			}
			if rec.LastUserMessageAt == nil || rec.LastUserMessageAt.After(threshold) {
				continue
			}

			notice := loc.Render(texts.SupportReminder, map[string]string{"user": rec.FullName})
			if _, err := deps.Relay.NotifyThread(ctx, rec, notice); err != nil {
				// One broken topic must not starve the other reminders.
				log.ErrorContext(ctx, "Failed to post reminder", "user_id", rec.ID, "error", err)
				continue
			}
			reminded++
		}

		if reminded > 0 {
			log.InfoContext(ctx, "Posted reminders", "count", reminded)
		}
		return nil
	}
}
