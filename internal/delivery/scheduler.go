package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SchedulerConfig configures the periodic retry runner.
type SchedulerConfig struct {
	Interval   time.Duration // How often to run a retry pass (default: 5m)
	Timeout    time.Duration // Upper bound for one pass (default: 2m)
	MaxRetries int           // Retry cap per delivery (default: 3)
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   5 * time.Minute,
		Timeout:    2 * time.Minute,
		MaxRetries: DefaultMaxRetries,
	}
}

// Scheduler runs retry passes on a fixed interval.
type Scheduler struct {
	config     SchedulerConfig
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewScheduler creates a scheduler. Zero config fields take defaults.
func NewScheduler(reconciler *Reconciler, config SchedulerConfig) *Scheduler {
	def := DefaultSchedulerConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	return &Scheduler{
		config:     config,
		reconciler: reconciler,
		logger:     reconciler.logger,
	}
}

// Run blocks, running a pass every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("retry scheduler started", "interval", s.config.Interval, "max_retries", s.config.MaxRetries)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retry scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	_, err := s.reconciler.RetryFailedDeliveries(passCtx, s.config.MaxRetries)
	switch {
	case err == nil:
	case errors.Is(err, ErrRetryInProgress):
		s.logger.Info("previous retry pass still running, skipping")
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
	default:
		s.logger.Error("retry pass failed", "error", err)
	}
}
