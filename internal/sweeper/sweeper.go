// Package sweeper periodically closes open groups whose expiry has passed.
//
// Every read and write already derives a group's status, so the sweeper is
// not needed for correctness. It keeps stored statuses and status filters
// current for groups nobody touches. Disabled by default.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/campusbuy/internal/metrics"
)

// runTimeout bounds a single sweep.
const runTimeout = time.Minute

// Expirer closes expired groups and reports how many it closed.
type Expirer interface {
	ExpireGroups(ctx context.Context) (int, error)
}

// Sweeper runs an Expirer on a cron schedule.
type Sweeper struct {
	expirer  Expirer
	schedule string
	cron     *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a sweeper. schedule accepts standard five-field cron
// expressions and descriptors such as "@every 1m".
func New(expirer Expirer, schedule string) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules sweeps until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("sweeper already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(s.ctx) }); err != nil {
		s.cancel()
		s.cancel = nil
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()

	slog.Info("Expiry sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	<-s.cron.Stop().Done()
	cancel()
	slog.Info("Expiry sweeper stopped")
}

// Sweep runs one pass and returns the number of groups closed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	closed, err := s.expirer.ExpireGroups(ctx)
	metrics.RecordSweep(err == nil)
	if err != nil {
		slog.Error("Expiry sweep failed", "closed", closed, "error", err)
		return closed
	}

	if closed > 0 {
		slog.Info("Expiry sweep closed groups", "closed", closed, "duration_ms", time.Since(start).Milliseconds())
	} else {
		slog.Debug("Expiry sweep found nothing to close")
	}
	return closed
}
