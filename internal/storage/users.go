package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// UsersKey is the hash holding one JSON record per user, keyed by numeric id.
const UsersKey = "users"

// maxUpdateRetries bounds optimistic-locking retries before the lossy
// overwrite fallback kicks in.
const maxUpdateRetries = 5

// ThreadIndexKey returns the reverse-index hash for a forum topic. The index
// maps a thread back to the single user it belongs to.
func ThreadIndexKey(threadID int) string {
	return fmt.Sprintf("%s_index_%d", UsersKey, threadID)
}

// UserStore persists canonical user records. All mutations go through Save or
// Update; the relay core never writes records any other way.
type UserStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewUserStore creates a UserStore backed by the given Redis client.
func NewUserStore(rdb *redis.Client, logger *slog.Logger) *UserStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &UserStore{
		rdb:    rdb,
		logger: logger.With("component", "user_store"),
	}
}

// Get retrieves a user record by id. Returns nil, nil when the user is unknown.
func (s *UserStore) Get(ctx context.Context, id int64) (*UserRecord, error) {
	raw, err := s.rdb.HGet(ctx, UsersKey, strconv.FormatInt(id, 10)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read user %d: %w", id, err)
	}

	var rec UserRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("corrupt record for user %d: %w", id, err)
	}
	return &rec, nil
}

// Save writes the record unconditionally and refreshes the thread index.
// Used for record creation; concurrent-safe mutation goes through Update.
func (s *UserStore) Save(ctx context.Context, rec *UserRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode user %d: %w", rec.ID, err)
	}
	if err := s.rdb.HSet(ctx, UsersKey, strconv.FormatInt(rec.ID, 10), payload).Err(); err != nil {
		return fmt.Errorf("failed to save user %d: %w", rec.ID, err)
	}
	s.updateThreadIndex(ctx, rec)
	return nil
}

// Update applies the mutation under optimistic concurrency: it watches the
// record hash, re-reads the current record, applies the mutation to the fresh
// copy, and commits transactionally. A detected conflicting write triggers a
// retry, up to maxUpdateRetries, so two concurrent updates touching disjoint
// fields both land.
//
// After exhausting retries the last mutated snapshot is written
// unconditionally. This is a deliberate lossy escape hatch carried over from
// the source system: in the pathological case concurrent writers may lose
// non-overlapping fields. The downgrade is logged.
//
// When no record exists, the mutation is applied to a zero-value record with
// the given id.
func (s *UserStore) Update(ctx context.Context, id int64, apply func(*UserRecord)) (*UserRecord, error) {
	field := strconv.FormatInt(id, 10)
	var last *UserRecord

	txn := func(tx *redis.Tx) error {
		rec, err := readRecord(ctx, tx, field, id)
		if err != nil {
			return err
		}
		apply(rec)
		last = rec

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode user %d: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, UsersKey, field, payload)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.rdb.Watch(ctx, txn, UsersKey)
		if err == nil {
			s.updateThreadIndex(ctx, last)
			return last, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}

	// Conflict retries exhausted: last-writer-wins with the latest snapshot.
	s.logger.WarnContext(ctx, "Optimistic update retries exhausted, overwriting record",
		"user_id", id, "retries", maxUpdateRetries)
	if err := s.Save(ctx, last); err != nil {
		return nil, err
	}
	return last, nil
}

func readRecord(ctx context.Context, tx *redis.Tx, field string, id int64) (*UserRecord, error) {
	raw, err := tx.HGet(ctx, UsersKey, field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &UserRecord{ID: id, Username: "-", State: "member", TicketStatus: TicketOpen}, nil
		}
		return nil, fmt.Errorf("failed to read user %d: %w", id, err)
	}

	rec := &UserRecord{}
	if err := json.Unmarshal(raw, rec); err != nil {
		// A record that no longer parses is replaced rather than blocking
		// every future update.
		return &UserRecord{ID: id, Username: "-", State: "member", TicketStatus: TicketOpen}, nil
	}
	return rec, nil
}

// updateThreadIndex opportunistically refreshes the thread-id reverse index.
// The index is a lookup accelerator, not the source of truth, so failures are
// logged and swallowed.
func (s *UserStore) updateThreadIndex(ctx context.Context, rec *UserRecord) {
	if rec == nil || rec.MessageThreadID == nil {
		return
	}
	key := ThreadIndexKey(*rec.MessageThreadID)
	if err := s.rdb.HSet(ctx, key, strconv.FormatInt(rec.ID, 10), "1").Err(); err != nil {
		s.logger.WarnContext(ctx, "Failed to update thread index",
			"user_id", rec.ID, "thread_id", *rec.MessageThreadID, "error", err)
	}
}

// ByThreadID resolves which user a forum topic belongs to, via the reverse
// index. Returns nil, nil when the thread is unknown.
func (s *UserStore) ByThreadID(ctx context.Context, threadID int) (*UserRecord, error) {
	ids, err := s.rdb.HKeys(ctx, ThreadIndexKey(threadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read thread index %d: %w", threadID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	id, err := strconv.ParseInt(ids[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt thread index %d: %w", threadID, err)
	}
	return s.Get(ctx, id)
}

// AllIDs returns every known user id. Non-numeric hash keys are skipped.
func (s *UserStore) AllIDs(ctx context.Context) ([]int64, error) {
	keys, err := s.rdb.HKeys(ctx, UsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BannedUsers returns all users with the banned flag set. Full scan; fine at
// the scale of one operator group.
func (s *UserStore) BannedUsers(ctx context.Context) ([]*UserRecord, error) {
	ids, err := s.AllIDs(ctx)
	if err != nil {
		return nil, err
	}

	var banned []*UserRecord
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil && rec.IsBanned {
			banned = append(banned, rec)
		}
	}
	return banned, nil
}
