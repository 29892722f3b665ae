package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// SettingsKey is the hash holding text-template overrides, keyed by
// "{category}:{language}".
const SettingsKey = "settings"

// SettingsCategory selects which built-in template an override replaces.
type SettingsCategory string

const (
	SettingGreeting        SettingsCategory = "greeting"
	SettingResolvedMessage SettingsCategory = "resolved_message"
)

// SettingsStore persists per-language template overrides. The absence of an
// override means the built-in default template is used.
type SettingsStore struct {
	rdb *redis.Client
}

// NewSettingsStore creates a SettingsStore backed by the given Redis client.
func NewSettingsStore(rdb *redis.Client) *SettingsStore {
	return &SettingsStore{rdb: rdb}
}

func settingsField(category SettingsCategory, language string) string {
	return string(category) + ":" + language
}

// Get returns the override for the category and language. The second return
// value is false when no override is stored.
func (s *SettingsStore) Get(ctx context.Context, category SettingsCategory, language string) (string, bool, error) {
	value, err := s.rdb.HGet(ctx, SettingsKey, settingsField(category, language)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s override for %q: %w", category, language, err)
	}
	return value, true, nil
}

// Set persists the override for the category and language.
func (s *SettingsStore) Set(ctx context.Context, category SettingsCategory, language, text string) error {
	if err := s.rdb.HSet(ctx, SettingsKey, settingsField(category, language), text).Err(); err != nil {
		return fmt.Errorf("failed to store %s override for %q: %w", category, language, err)
	}
	return nil
}

// Reset removes the override for the category and language, if present.
func (s *SettingsStore) Reset(ctx context.Context, category SettingsCategory, language string) error {
	if err := s.rdb.HDel(ctx, SettingsKey, settingsField(category, language)).Err(); err != nil {
		return fmt.Errorf("failed to reset %s override for %q: %w", category, language, err)
	}
	return nil
}

// All returns every override in the category, indexed by language. Overrides
// from other categories never appear in the result.
func (s *SettingsStore) All(ctx context.Context, category SettingsCategory) (map[string]string, error) {
	raw, err := s.rdb.HGetAll(ctx, SettingsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s overrides: %w", category, err)
	}

	prefix := string(category) + ":"
	result := make(map[string]string)
	for field, value := range raw {
		if !strings.HasPrefix(field, prefix) {
			continue
		}
		result[strings.TrimPrefix(field, prefix)] = value
	}
	return result, nil
}
