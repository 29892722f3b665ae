package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/supportbot/internal/bot/tasks"
	"github.com/edgard/supportbot/internal/config"
)

// Scheduler manages recurring and one-shot jobs using the gocron library.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.RemindersConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(logger *slog.Logger, cfg *config.RemindersConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules the recurring tasks and starts the scheduler's ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	if !s.cfg.Enabled {
		s.logger.Info("Recurring tasks disabled, scheduler handles one-shot jobs only")
	} else {
		for taskName, taskFunc := range s.taskMap {
			_, err := s.scheduler.NewJob(
				gocron.CronJob(s.cfg.Schedule, false),
				gocron.NewTask(
					func(ctx context.Context, name string, fn tasks.ScheduledTaskFunc) {
						s.logger.Info("Running scheduled task", "task_name", name)
						start := time.Now()
						if taskErr := fn(ctx); taskErr != nil {
							s.logger.Error("Scheduled task failed", "task_name", name, "error", taskErr)
						}
						s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(start))
					},
					context.Background(),
					taskName,
					taskFunc,
				),
				gocron.WithName(taskName),
			)
			if err != nil {
				return fmt.Errorf("failed to schedule task %q: %w", taskName, err)
			}
			s.logger.Info("Scheduled task", "task_name", taskName, "schedule", s.cfg.Schedule)
		}
	}

	s.scheduler.Start()
	s.running = true
	return nil
}

// After runs fn once after the delay. Pending one-shot jobs are dropped on
// shutdown, which is fine for the cleanup work they carry.
func (s *Scheduler) After(name string, delay time.Duration, fn func(ctx context.Context)) {
	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(delay))),
		gocron.NewTask(fn, context.Background()),
		gocron.WithName(name),
	)
	if err != nil {
		s.logger.Error("Failed to schedule one-shot job", "name", name, "error", err)
	}
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	}
	s.running = false
	return err
}
