// Package storage provides the Redis-backed persistence layer: user records
// with optimistic-concurrency updates, settings overrides, and FAQ entries.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Open creates a new Redis client and pings it to validate the connection.
func Open(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return c, nil
}

// Close closes the Redis connection, logging any error.
func Close(c *redis.Client, log *slog.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Error("Error closing redis connection", "error", err)
	} else {
		log.Info("Redis connection closed successfully.")
	}
}
