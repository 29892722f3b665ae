// Package tasks implements the scheduled background jobs of the support bot.
package tasks

import (
	"log/slog"

	"github.com/edgard/supportbot/internal/config"
	"github.com/edgard/supportbot/internal/storage"
	"github.com/edgard/supportbot/internal/ticket"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Users  *storage.UserStore
	Relay  *ticket.Relay
}
