package core

// scheduler.go runs activity log retention in the background. Each cycle
// deletes entries older than the retention window in batches until a batch
// comes back short. Failures are logged and retried on the next cycle.

import (
	"context"
	"log/slog"
	"time"
)

// PruneConfig controls activity log retention. Zero values use defaults.
type PruneConfig struct {
	RetentionDays int           // Days of activity to keep (default: 90)
	BatchSize     int           // Rows deleted per statement (default: 5000)
	Interval      time.Duration // Time between cycles (default: 24h)
}

func (c *PruneConfig) applyDefaults() {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
}

// StartActivityPruner prunes once immediately and then every Interval until
// ctx is cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartActivityPruner(ctx context.Context, cfg PruneConfig) {
	cfg.applyDefaults()
	slog.Info("activity pruner started",
		"retention_days", cfg.RetentionDays,
		"batch_size", cfg.BatchSize,
		"interval", cfg.Interval,
	)

	s.PruneActivity(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("activity pruner stopped")
			return
		case <-ticker.C:
			s.PruneActivity(ctx, cfg)
		}
	}
}

// PruneActivity runs one retention cycle and returns how many entries it removed.
func (s *Service) PruneActivity(ctx context.Context, cfg PruneConfig) int64 {
	cfg.applyDefaults()
	start := time.Now()
	cutoff := s.now().AddDate(0, 0, -cfg.RetentionDays)

	var total int64
	for ctx.Err() == nil {
		n, err := s.store.PruneActivity(ctx, cutoff, cfg.BatchSize)
		if err != nil {
			slog.Error("activity prune failed", "error", err, "pruned", total)
			return total
		}
		total += n
		if n < int64(cfg.BatchSize) {
			break
		}
	}

	slog.Info("activity prune completed",
		"pruned", total,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return total
}
