package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/incident-map/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Refresher starts fetch-and-reconcile cycles.
type Refresher interface {
	Refresh(ctx context.Context) <-chan struct{}
}

// Scheduler refreshes immediately and then on every tick of a fixed interval.
// It never waits for a cycle to finish before starting the next.
type Scheduler struct {
	refresher Refresher
	clock     clockwork.Clock
	interval  time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler. A nil clock uses real time.
func NewScheduler(r Refresher, clock clockwork.Clock, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		refresher: r,
		clock:     clock,
		interval:  interval,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run refreshes until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("refresh scheduler started", "interval", s.interval)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.refresher.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.refresher.Refresh(ctx)
		}
	}
}
