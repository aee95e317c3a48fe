package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/didac-crst/mockexchange-api/internal/logging"
	"github.com/didac-crst/mockexchange-api/internal/scheduler"
)

type fakeEngine struct {
	ticks   atomic.Int64
	prunes  atomic.Int64
	tickErr error
}

func (f *fakeEngine) Tick(ctx context.Context) error {
	f.ticks.Add(1)
	return f.tickErr
}

func (f *fakeEngine) Prune(ctx context.Context) error {
	f.prunes.Add(1)
	return nil
}

func TestSchedulerRunsTickAndPruneLoops(t *testing.T) {
	eng := &fakeEngine{}
	s := scheduler.New(eng, logging.NewNop(), 5*time.Millisecond, 7*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Greater(t, eng.ticks.Load(), int64(0))
	assert.Greater(t, eng.prunes.Load(), int64(0))
}

func TestSchedulerZeroIntervalDisablesLoop(t *testing.T) {
	eng := &fakeEngine{}
	s := scheduler.New(eng, logging.NewNop(), 0, 5*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int64(0), eng.ticks.Load())
	assert.Greater(t, eng.prunes.Load(), int64(0))
}

func TestSchedulerStopIsIdempotentWithoutStart(t *testing.T) {
	s := scheduler.New(&fakeEngine{}, logging.NewNop(), time.Second, time.Second)
	assert.NotPanics(t, func() { s.Stop(); s.Stop() })
}

func TestSchedulerSurvivesLoopIterationErrors(t *testing.T) {
	eng := &fakeEngine{tickErr: assertErr{}}
	s := scheduler.New(eng, logging.NewNop(), 5*time.Millisecond, 0)

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Greater(t, eng.ticks.Load(), int64(1), "loop keeps running after a failed iteration")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
