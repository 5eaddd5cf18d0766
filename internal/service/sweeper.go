package service

import (
	"context"
	"log/slog"
	"time"
)

// SweeperConfig controls the background sweep jobs.
type SweeperConfig struct {
	// Interval between delivery sweeps for due scheduled notifications.
	Interval time.Duration
	// CleanupInterval between retention sweeps.
	CleanupInterval time.Duration
	// RetentionDays is how long notifications are kept.
	RetentionDays int
	// BatchSize caps how many due rows one delivery sweep processes.
	BatchSize int
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 24 * time.Hour
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// Sweeper periodically re-invokes the delivery step for due scheduled
// notifications and purges expired records. It is the external trigger the
// dispatcher itself does not provide: creating a scheduled notification
// only persists it, and this sweep delivers it once its time arrives.
type Sweeper struct {
	notifications *NotificationService
	cfg           SweeperConfig
}

// NewSweeper creates a new Sweeper.
func NewSweeper(notifications *NotificationService, cfg SweeperConfig) *Sweeper {
	return &Sweeper{notifications: notifications, cfg: cfg.withDefaults()}
}

// Run blocks, sweeping on each tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	deliver := time.NewTicker(s.cfg.Interval)
	defer deliver.Stop()
	cleanup := time.NewTicker(s.cfg.CleanupInterval)
	defer cleanup.Stop()

	slog.Info("sweeper started",
		"interval", s.cfg.Interval,
		"cleanup_interval", s.cfg.CleanupInterval,
		"retention_days", s.cfg.RetentionDays,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-deliver.C:
			s.sweepDeliveries(ctx)
		case <-cleanup.C:
			s.sweepRetention(ctx)
		}
	}
}

// sweepDeliveries drains due notifications in batches until a sweep comes
// up short or empty. DeliverDue counts only rows that got stamped, so a
// batch of rows that all fail to record their outcome ends the sweep here
// instead of spinning until the next tick.
func (s *Sweeper) sweepDeliveries(ctx context.Context) {
	for {
		stamped, err := s.notifications.DeliverDue(ctx, s.cfg.BatchSize)
		if err != nil {
			slog.Error("delivery sweep failed", "error", err)
			return
		}
		if stamped > 0 {
			slog.Info("delivery sweep", "processed", stamped)
		}
		if stamped < s.cfg.BatchSize {
			return
		}
	}
}

func (s *Sweeper) sweepRetention(ctx context.Context) {
	if _, err := s.notifications.Cleanup(ctx, s.cfg.RetentionDays); err != nil {
		slog.Error("retention sweep failed", "error", err)
	}
}
