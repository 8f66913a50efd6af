package session

import (
	"context"
	"time"

	"relay/internal/logger"
	"relay/pkg/errors"
	"relay/pkg/metrics"
)

// Sweeper drives the periodic expiry sweep. A sweep failure is logged and
// the loop continues on the next tick; the registry itself guarantees only
// one sweep runs at a time.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   logger.Logger
}

func NewSweeper(registry *Registry, interval time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		logger:   log,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SweepFailuresTotal.Inc()
			s.logger.ErrorwCtx(ctx, "Expiry sweep panicked",
				"error", errors.RecoverPanic(r),
			)
		}
	}()

	evicted := s.registry.CleanupExpired(ctx)
	if evicted > 0 {
		s.logger.InfowCtx(ctx, "Expiry sweep evicted sessions",
			"count", evicted,
		)
	}
}
