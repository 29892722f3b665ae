// Package migrations upgrades data already stored in Redis to the current
// record layout. Steps run in a fixed order before the bot starts polling;
// each step is applied at most once and a failing step aborts startup.
package migrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/redis/go-redis/v9"

	"github.com/edgard/supportbot/internal/security"
	"github.com/edgard/supportbot/internal/storage"
)

// AppliedKey is the Redis set holding the names of completed steps.
const AppliedKey = "migrations:applied"

// yieldEvery bounds how many records a step processes between context
// checks, so shutdown is not blocked behind a large scan.
const yieldEvery = 100

// TopicRenamer is the slice of the chat SDK used to rename forum topics
// during a migration. *bot.Bot satisfies it.
type TopicRenamer interface {
	EditForumTopic(ctx context.Context, params *bot.EditForumTopicParams) (bool, error)
}

// Step is one named, idempotent data upgrade.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes the registered steps in order, skipping the ones already
// recorded as applied.
type Runner struct {
	rdb     *redis.Client
	users   *storage.UserStore
	renamer TopicRenamer
	groupID int64
	logger  *slog.Logger
}

// NewRunner creates a migration runner. The renamer may be nil; steps that
// rename topics then only fix stored data.
func NewRunner(rdb *redis.Client, users *storage.UserStore, renamer TopicRenamer, groupID int64, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		rdb:     rdb,
		users:   users,
		renamer: renamer,
		groupID: groupID,
		logger:  logger.With("component", "migrations"),
	}
}

// Run applies all pending steps. The first failure aborts the run with the
// step left unrecorded, so it retries on next startup.
func (r *Runner) Run(ctx context.Context) error {
	steps := []Step{
		{Name: "ensure_operator_replied_flag", Run: r.ensureOperatorRepliedFlag},
		{Name: "sanitize_display_names", Run: r.sanitizeDisplayNames},
	}

	for _, step := range steps {
		applied, err := r.rdb.SIsMember(ctx, AppliedKey, step.Name).Result()
		if err != nil {
			return fmt.Errorf("failed to check migration %q: %w", step.Name, err)
		}
		if applied {
			continue
		}

		r.logger.InfoContext(ctx, "Applying migration", "name", step.Name)
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("migration %q failed: %w", step.Name, err)
		}
		if err := r.rdb.SAdd(ctx, AppliedKey, step.Name).Err(); err != nil {
			return fmt.Errorf("failed to record migration %q: %w", step.Name, err)
		}
	}

	return nil
}

// ensureOperatorRepliedFlag rewrites records stored before the
// operator_replied flag existed. Rewriting through the current struct fills
// the flag with its zero value.
func (r *Runner) ensureOperatorRepliedFlag(ctx context.Context) error {
	raw, err := r.rdb.HGetAll(ctx, storage.UsersKey).Result()
	if err != nil {
		return fmt.Errorf("failed to scan user records: %w", err)
	}

	processed := 0
	for field, value := range raw {
		if processed%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		processed++

		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(value), &probe); err != nil {
			r.logger.WarnContext(ctx, "Skipping corrupt user record", "field", field)
			continue
		}
		if _, ok := probe["operator_replied"]; ok {
			continue
		}

		var rec storage.UserRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			r.logger.WarnContext(ctx, "Skipping corrupt user record", "field", field)
			continue
		}
		if err := r.users.Save(ctx, &rec); err != nil {
			return err
		}
	}

	return nil
}

// sanitizeDisplayNames re-runs the display-name sanitizer over every stored
// record and renames the matching forum topics. Records written before the
// sanitizer existed can still carry invite links in their names.
func (r *Runner) sanitizeDisplayNames(ctx context.Context) error {
	ids, err := r.users.AllIDs(ctx)
	if err != nil {
		return err
	}

	for i, id := range ids {
		if i%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		rec, err := r.users.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}

		sanitized := security.SanitizeDisplayName(rec.FullName, fmt.Sprintf("User %d", rec.ID))
		if sanitized == rec.FullName {
			continue
		}

		rec, err = r.users.Update(ctx, id, func(u *storage.UserRecord) {
			u.FullName = sanitized
		})
		if err != nil {
			return err
		}

		if r.renamer == nil || rec.MessageThreadID == nil {
			continue
		}
		_, err = r.renamer.EditForumTopic(ctx, &bot.EditForumTopicParams{
			ChatID:          r.groupID,
			MessageThreadID: *rec.MessageThreadID,
			Name:            sanitized,
		})
		if err != nil {
			// The stored data is fixed either way.
			r.logger.WarnContext(ctx, "Failed to rename topic", "user_id", rec.ID, "error", err)
		}
	}

	return nil
}
