package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The YAML file at configPath (optional)
// 3. BOT_* environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow a missing config file; env and defaults may carry everything.
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to access config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	// Required keys default to zero values so AutomaticEnv can bind them;
	// validation rejects the zero values when nothing overrides them.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.group_id", 0)
	v.SetDefault("telegram.topic_emoji_id", "")
	v.SetDefault("telegram.topic_replied_emoji_id", "")
	v.SetDefault("telegram.topic_resolved_emoji_id", "")
	v.SetDefault("redis.password", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("telegram.default_language", "en")
	v.SetDefault("telegram.language_prompt_enabled", true)

	v.SetDefault("security.enabled", true)
	v.SetDefault("security.throttle_window", 50*time.Millisecond)

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.schedule", "*/10 * * * *")
	v.SetDefault("reminders.after", 15*time.Minute)
}
