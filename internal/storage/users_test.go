package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/edgard/supportbot/internal/storage"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUserStoreGetUnknownUser(t *testing.T) {
	t.Parallel()

	store := storage.NewUserStore(newTestRedis(t), nil)

	rec, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestUserStoreSaveAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewUserStore(newTestRedis(t), nil)

	rec := storage.NewUserRecord(100, "Alice", "@alice")
	rec.LanguageCode = "en"
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int64(100), got.ID)
	require.Equal(t, "Alice", got.FullName)
	require.Equal(t, "@alice", got.Username)
	require.Equal(t, storage.TicketOpen, got.TicketStatus)
	require.False(t, got.IsBanned)
}

func TestUserStoreUpdateCreatesMissingRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewUserStore(newTestRedis(t), nil)

	rec, err := store.Update(ctx, 7, func(u *storage.UserRecord) {
		u.FullName = "Bob"
		u.IsBanned = true
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), rec.ID)
	require.True(t, rec.IsBanned)

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Bob", got.FullName)
	require.True(t, got.IsBanned)
}

func TestUserStoreUpdateMergesDisjointFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewUserStore(newTestRedis(t), nil)
	require.NoError(t, store.Save(ctx, storage.NewUserRecord(1, "Carol", "@carol")))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := store.Update(ctx, 1, func(u *storage.UserRecord) {
			u.AwaitingReply = true
		})
		require.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := store.Update(ctx, 1, func(u *storage.UserRecord) {
			u.LanguageCode = "ru"
		})
		require.NoError(t, err)
	}()
	wg.Wait()

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, got.AwaitingReply, "awaiting_reply update lost")
	require.Equal(t, "ru", got.LanguageCode, "language update lost")
}

func TestUserStoreThreadIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewUserStore(newTestRedis(t), nil)

	threadID := 555
	rec := storage.NewUserRecord(9, "Dave", "@dave")
	rec.MessageThreadID = &threadID
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.ByThreadID(ctx, threadID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int64(9), got.ID)

	missing, err := store.ByThreadID(ctx, 999)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestUserStoreBannedUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewUserStore(newTestRedis(t), nil)

	for _, u := range []struct {
		id     int64
		banned bool
	}{{1, false}, {2, true}, {3, true}} {
		rec := storage.NewUserRecord(u.id, "User", "-")
		rec.IsBanned = u.banned
		require.NoError(t, store.Save(ctx, rec))
	}

	banned, err := store.BannedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, banned, 2)

	ids, err := store.AllIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 3)
}

func TestUserStoreTimestampsRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewUserStore(newTestRedis(t), nil)

	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	rec := storage.NewUserRecord(4, "Eve", "@eve")
	rec.LastUserMessageAt = &at
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, got.LastUserMessageAt)
	require.True(t, got.LastUserMessageAt.Equal(at))
}
