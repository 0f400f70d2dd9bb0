package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Locker locks every OPEN batch whose cutoff has passed.
type Locker interface {
	LockExpired(ctx context.Context) (int, error)
}

// CutoffSweeper persists cutoff locks on a fixed interval. Reads already
// treat an expired OPEN batch as LOCKED; the sweeper makes it durable so
// settlement and procurement can proceed.
type CutoffSweeper struct {
	locker   Locker
	interval time.Duration
	logger   *zap.Logger
}

func NewCutoffSweeper(locker Locker, interval time.Duration, logger *zap.Logger) *CutoffSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CutoffSweeper{
		locker:   locker,
		interval: interval,
		logger:   logger.Named("cutoff_sweeper"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Sweep failures are logged and retried on the next tick.
func (s *CutoffSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("started", zap.Duration("interval", s.interval))
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *CutoffSweeper) sweep(ctx context.Context) {
	n, err := s.locker.LockExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("sweep failed", zap.Int("locked", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("locked batches past cutoff", zap.Int("count", n))
	}
}
