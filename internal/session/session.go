// Package session stores ephemeral per-conversation state: the last rendered
// bot message, the chosen interface language, and any pending admin input
// prompt. Session state is disposable; clearing it never touches durable user
// records.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	fieldMessageID   = "message_id"
	fieldLanguage    = "language_code"
	fieldPendingKind = "pending_kind"
	fieldPendingArg  = "pending_arg"
)

// Pending identifies an input the bot is waiting for in a conversation,
// e.g. the admin typing a new greeting text. Arg carries the prompt's
// parameter (language code, FAQ item id).
type Pending struct {
	Kind string
	Arg  string
}

// Store keeps conversation state in one Redis hash per chat.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a session store backed by the given Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("session:%d", chatID)
}

// LastMessageID returns the id of the last bot message rendered in the chat.
func (s *Store) LastMessageID(ctx context.Context, chatID int64) (int, bool, error) {
	raw, err := s.rdb.HGet(ctx, sessionKey(chatID), fieldMessageID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read session message id for chat %d: %w", chatID, err)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// SetLastMessageID records the id of the last bot message in the chat.
func (s *Store) SetLastMessageID(ctx context.Context, chatID int64, messageID int) error {
	if err := s.rdb.HSet(ctx, sessionKey(chatID), fieldMessageID, strconv.Itoa(messageID)).Err(); err != nil {
		return fmt.Errorf("failed to store session message id for chat %d: %w", chatID, err)
	}
	return nil
}

// ClearLastMessageID forgets the tracked message for the chat.
func (s *Store) ClearLastMessageID(ctx context.Context, chatID int64) error {
	if err := s.rdb.HDel(ctx, sessionKey(chatID), fieldMessageID).Err(); err != nil {
		return fmt.Errorf("failed to clear session message id for chat %d: %w", chatID, err)
	}
	return nil
}

// Language returns the interface language chosen in this conversation.
func (s *Store) Language(ctx context.Context, chatID int64) (string, bool, error) {
	raw, err := s.rdb.HGet(ctx, sessionKey(chatID), fieldLanguage).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read session language for chat %d: %w", chatID, err)
	}
	return raw, true, nil
}

// SetLanguage records the interface language for this conversation.
func (s *Store) SetLanguage(ctx context.Context, chatID int64, language string) error {
	if err := s.rdb.HSet(ctx, sessionKey(chatID), fieldLanguage, language).Err(); err != nil {
		return fmt.Errorf("failed to store session language for chat %d: %w", chatID, err)
	}
	return nil
}

// Pending returns the input the bot is waiting for in the chat, if any.
func (s *Store) Pending(ctx context.Context, chatID int64) (*Pending, error) {
	values, err := s.rdb.HMGet(ctx, sessionKey(chatID), fieldPendingKind, fieldPendingArg).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending input for chat %d: %w", chatID, err)
	}
	kind, _ := values[0].(string)
	if kind == "" {
		return nil, nil
	}
	arg, _ := values[1].(string)
	return &Pending{Kind: kind, Arg: arg}, nil
}

// SetPending marks the chat as waiting for a specific input.
func (s *Store) SetPending(ctx context.Context, chatID int64, pending Pending) error {
	err := s.rdb.HSet(ctx, sessionKey(chatID),
		fieldPendingKind, pending.Kind,
		fieldPendingArg, pending.Arg,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to store pending input for chat %d: %w", chatID, err)
	}
	return nil
}

// ClearPending removes any pending-input marker from the chat.
func (s *Store) ClearPending(ctx context.Context, chatID int64) error {
	if err := s.rdb.HDel(ctx, sessionKey(chatID), fieldPendingKind, fieldPendingArg).Err(); err != nil {
		return fmt.Errorf("failed to clear pending input for chat %d: %w", chatID, err)
	}
	return nil
}
