// Package config manages application configuration from environment variables,
// config files, and default values.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Values can be set via
// environment variables prefixed with BOT_ (e.g., BOT_TELEGRAM_TOKEN) or
// through config.yaml.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Security  SecurityConfig  `mapstructure:"security"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Log       LogConfig       `mapstructure:"log"`
}

// TelegramConfig holds the transport credentials and routing identities.
// AdminID is the operator allowed to use the management commands in DM;
// GroupID is the forum-enabled operator group where ticket topics live.
type TelegramConfig struct {
	Token   string `mapstructure:"token"    validate:"required"`
	AdminID int64  `mapstructure:"admin_id" validate:"required,gt=0"`
	GroupID int64  `mapstructure:"group_id" validate:"required"`

	// Custom emoji ids for topic icons per ticket state.
	TopicEmojiID         string `mapstructure:"topic_emoji_id"`
	TopicRepliedEmojiID  string `mapstructure:"topic_replied_emoji_id"`
	TopicResolvedEmojiID string `mapstructure:"topic_resolved_emoji_id"`

	DefaultLanguage       string `mapstructure:"default_language" validate:"required"`
	LanguagePromptEnabled bool   `mapstructure:"language_prompt_enabled"`
}

// RedisConfig holds the key-value store connection parameters.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"   validate:"min=0"`
}

// SecurityConfig toggles the anti-spam gate on the inbound relay path and
// sizes the per-user debounce window of the throttle middleware.
type SecurityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ThrottleWindow time.Duration `mapstructure:"throttle_window" validate:"min=0"`
}

// RemindersConfig controls the operator reminder task for tickets that are
// still awaiting a reply.
type RemindersConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule" validate:"required"`
	After    time.Duration `mapstructure:"after"    validate:"min=1m"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// Validate checks the complete configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}
