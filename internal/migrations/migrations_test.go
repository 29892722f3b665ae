package migrations_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-telegram/bot"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/edgard/supportbot/internal/migrations"
	"github.com/edgard/supportbot/internal/storage"
)

type fakeRenamer struct {
	renamed map[int]string
}

func (f *fakeRenamer) EditForumTopic(_ context.Context, params *bot.EditForumTopicParams) (bool, error) {
	if f.renamed == nil {
		f.renamed = map[int]string{}
	}
	f.renamed[params.MessageThreadID] = params.Name
	return true, nil
}

func newTestRunner(t *testing.T) (*migrations.Runner, *redis.Client, *storage.UserStore, *fakeRenamer) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := storage.NewUserStore(client, log)
	renamer := &fakeRenamer{}
	return migrations.NewRunner(client, users, renamer, -100500, log), client, users, renamer
}

func TestRunFillsMissingOperatorRepliedFlag(t *testing.T) {
	t.Parallel()

	runner, client, users, _ := newTestRunner(t)
	ctx := context.Background()

	// A record serialized before the flag existed.
	legacy := map[string]any{
		"id":            int64(42),
		"full_name":     "Alice",
		"username":      "-",
		"state":         "member",
		"ticket_status": "open",
		"created_at":    "2024-01-01T00:00:00Z",
	}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, client.HSet(ctx, storage.UsersKey, "42", raw).Err())

	require.NoError(t, runner.Run(ctx))

	rec, err := users.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.False(t, rec.OperatorReplied)

	stored, err := client.HGet(ctx, storage.UsersKey, "42").Result()
	require.NoError(t, err)
	var probe map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(stored), &probe))
	require.Contains(t, probe, "operator_replied")
}

func TestRunSanitizesStoredDisplayNames(t *testing.T) {
	t.Parallel()

	runner, _, users, renamer := newTestRunner(t)
	ctx := context.Background()

	thread := 321
	_, err := users.Update(ctx, 42, func(u *storage.UserRecord) {
		*u = *storage.NewUserRecord(42, "Support t.me/scam here", "-")
		u.MessageThreadID = &thread
	})
	require.NoError(t, err)

	require.NoError(t, runner.Run(ctx))

	rec, err := users.Get(ctx, 42)
	require.NoError(t, err)
	require.NotContains(t, rec.FullName, "t.me")
	require.Equal(t, rec.FullName, renamer.renamed[thread])
}

func TestRunAppliesEachStepOnce(t *testing.T) {
	t.Parallel()

	runner, client, users, renamer := newTestRunner(t)
	ctx := context.Background()

	thread := 321
	_, err := users.Update(ctx, 42, func(u *storage.UserRecord) {
		*u = *storage.NewUserRecord(42, "Visit t.me/scam", "-")
		u.MessageThreadID = &thread
	})
	require.NoError(t, err)

	require.NoError(t, runner.Run(ctx))
	applied, err := client.SMembers(ctx, migrations.AppliedKey).Result()
	require.NoError(t, err)
	require.Len(t, applied, 2)

	renamer.renamed = nil
	require.NoError(t, runner.Run(ctx))
	require.Empty(t, renamer.renamed)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	runner, client, users, _ := newTestRunner(t)
	ctx := context.Background()

	for i := range 5 {
		_, err := users.Update(ctx, int64(1000+i), func(u *storage.UserRecord) {
			*u = *storage.NewUserRecord(int64(1000+i), "User "+strconv.Itoa(i), "-")
		})
		require.NoError(t, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	require.Error(t, runner.Run(cancelled))

	applied, err := client.SMembers(ctx, migrations.AppliedKey).Result()
	require.NoError(t, err)
	require.Empty(t, applied)
}
