// Package scheduler runs the two cooperative background loops spec.md
// §2/§5 names: tick (limit settlement) and prune (expiry/cleanup). Each
// loop is a time.Ticker-driven worker, grounded on the teacher's
// OrderbookHub.StartOrderbookBroadcaster (ticker.C range loop) and
// Run()'s select-on-channels shape, generalized to observe a
// context.Context cancellation instead of a register/unregister channel
// pair, per spec.md §5's "observes a shutdown signal between iterations
// and at every store call" requirement.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/metrics"
)

// Engine is the subset of engine.Engine the scheduler drives; declared
// here (not imported) so tests can supply a fake without pulling in the
// whole engine package.
type Engine interface {
	Tick(ctx context.Context) error
	Prune(ctx context.Context) error
}

// Scheduler owns the tick and prune loops' lifecycle.
type Scheduler struct {
	engine        Engine
	log           *zap.Logger
	tickInterval  time.Duration
	pruneInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(e Engine, log *zap.Logger, tickInterval, pruneInterval time.Duration) *Scheduler {
	return &Scheduler{
		engine:        e,
		log:           log,
		tickInterval:  tickInterval,
		pruneInterval: pruneInterval,
	}
}

// Start launches both loops in background goroutines. A zero interval
// disables that loop entirely (prune_every_min=0 per spec.md §6).
// Calling Start twice without an intervening Stop is a programmer error.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.tickInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runLoop(ctx, "tick", s.tickInterval, s.engine.Tick, metrics.TickLoopDuration)
		}()
	}
	if s.pruneInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runLoop(ctx, "prune", s.pruneInterval, s.engine.Prune, metrics.PruneLoopDuration)
		}()
	}
}

// Stop cancels both loops and blocks until they have observed the
// cancellation and returned, so shutdown completes within one iteration
// interval as spec.md §5 requires.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

type histogramObserver interface {
	Observe(float64)
}

func (s *Scheduler) runLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error, hist histogramObserver) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := fn(ctx); err != nil {
				s.log.Error("scheduler loop iteration failed", zap.String("loop", name), zap.Error(err))
			}
			hist.Observe(time.Since(start).Seconds())
		}
	}
}
