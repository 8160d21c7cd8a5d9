// Package retention purges ledger entries past the retention horizon.
package retention

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultHorizon  = 7 * 24 * time.Hour
	DefaultInterval = time.Hour
)

// PurgeFunc deletes everything older than cutoff and returns how many entries went away
type PurgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// Target is one store the sweeper cleans
type Target struct {
	Name  string
	Purge PurgeFunc
}

// Sweeper runs the purge targets on a fixed schedule
type Sweeper struct {
	targets  []Target
	horizon  time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewSweeper(horizon, interval time.Duration, logger *zap.Logger, targets ...Target) *Sweeper {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		targets:  targets,
		horizon:  horizon,
		interval: interval,
		now:      time.Now,
		logger:   logger.Named("retention"),
	}
}

// Sweep purges every target once. A failing target doesn't stop the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.horizon)

	for _, target := range s.targets {
		deleted, err := target.Purge(ctx, cutoff)
		if err != nil {
			s.logger.Error("Failed to purge old records",
				zap.String("target", target.Name),
				zap.Time("cutoff", cutoff),
				zap.Error(err))
			continue
		}
		if deleted > 0 {
			s.logger.Info("Purged old records",
				zap.String("target", target.Name),
				zap.Int64("deleted", deleted))
		}
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("Retention sweeper started",
		zap.Duration("horizon", s.horizon),
		zap.Duration("interval", s.interval))

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			s.logger.Info("Retention sweeper stopped")
			return nil
		}
	}
}
