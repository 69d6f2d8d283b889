// Package compaction runs the optional background scheduler that calls an
// engine's Compact method on a fixed interval. The engine itself never
// compacts automatically -- Compact is always directly callable -- this
// package only adds a convenient, opt-in timer on top of it.
package compaction

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Compactor is the subset of internal/engine.Engine the scheduler depends
// on, kept narrow so this package doesn't import internal/engine directly.
type Compactor interface {
	Compact() error
}

// Scheduler ticks at a fixed interval, calling Compact on every tick, until
// Stop is called. It is safe to construct with a zero or negative interval;
// Start then becomes a no-op, leaving compaction fully manual.
type Scheduler struct {
	interval time.Duration
	target   Compactor
	log      *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewScheduler returns a Scheduler that will call target.Compact every
// interval once Start is called.
func NewScheduler(target Compactor, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{target: target, interval: interval, log: log}
}

// Start launches the background ticking goroutine. Calling Start when the
// interval is non-positive, or when the scheduler is already running, is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 || s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	s.cancel = cancel
	s.group = group

	group.Go(func() error {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if err := s.target.Compact(); err != nil {
					s.log.Warnw("background compaction tick failed", "error", err)
				}
			}
		}
	})

	s.log.Infow("background compaction scheduler started", "interval", s.interval)
}

// Stop cancels the background goroutine and waits for it to exit. Calling
// Stop when the scheduler was never started is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	group := s.group
	s.cancel = nil
	s.group = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	_ = group.Wait()
	s.log.Infow("background compaction scheduler stopped")
}
