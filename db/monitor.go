package db

import (
	"context"
	"log/slog"
	"time"
)

// Monitor pings the pool every interval until ctx is done, logging failed
// pings and pool statistics. Errors never stop the loop: a dropped idle
// connection is replaced by database/sql on next use, and the service keeps
// serving. Run it on its own goroutine.
func (d *DB) Monitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := d.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.ErrorContext(ctx, "db: pool health check failed", slog.Any("error", err))
			continue
		}

		stats := d.Stats()
		logger.DebugContext(ctx, "db: pool stats",
			slog.Int("open", stats.OpenConnections),
			slog.Int("idle", stats.Idle),
			slog.Int("in_use", stats.InUse),
			slog.Int64("wait_count", stats.WaitCount),
			slog.Duration("wait_duration", stats.WaitDuration),
		)
	}
}
