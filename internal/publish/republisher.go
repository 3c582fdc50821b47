package publish

import (
	"context"
	"log/slog"
	"time"
)

// Republisher periodically re-sends the latest materials so the dashboard
// stays fresh while the robot is between checkpoints.
type Republisher struct {
	pub      *Publisher
	interval time.Duration
	logger   *slog.Logger
}

// NewRepublisher creates a republisher. An interval of zero or less disables
// it.
func NewRepublisher(pub *Publisher, interval time.Duration, logger *slog.Logger) *Republisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Republisher{pub: pub, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, republishing on every tick.
func (r *Republisher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := r.pub.Republish(ctx)
			switch {
			case err != nil:
				r.logger.Warn("periodic republish failed", "error", err)
			case sent:
				r.logger.Debug("republished materials")
			}
		}
	}
}
