package scheduler

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"
)

func TestNextDelay(t *testing.T) {
	at := func(ms int64) time.Time { return time.UnixMilli(ms) }

	assert.Equal(t, 1000*time.Millisecond, NextDelay(at(1_700_000_000_000), time.Second))
	assert.Equal(t, 750*time.Millisecond, NextDelay(at(1_700_000_000_250), time.Second))
	assert.Equal(t, 1*time.Millisecond, NextDelay(at(1_700_000_000_999), time.Second))
}

func TestNextDelayProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms := rapid.Int64Range(0, 4_000_000_000_000).Draw(t, "ms")
		d := NextDelay(time.UnixMilli(ms), time.Second)
		if d <= 0 || d > time.Second {
			t.Fatalf("delay %v for t=%d out of (0, 1s]", d, ms)
		}
		if want := time.Duration(1000-ms%1000) * time.Millisecond; d != want {
			t.Fatalf("delay %v for t=%d, want %v", d, ms, want)
		}
	})
}

type harness struct {
	clock   *clockwork.FakeClock
	posted  chan func()
	redraws int
	s       *RedrawScheduler
}

func newHarness(start time.Time) *harness {
	h := &harness{clock: clockwork.NewFakeClockAt(start), posted: make(chan func(), 16)}
	h.s = NewRedrawScheduler(h.clock, func(fn func()) { h.posted <- fn }, func() { h.redraws++ })
	return h
}

// runNext runs the next posted tick as the UI loop would.
func (h *harness) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-h.posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("no tick posted")
	}
}

func (h *harness) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case <-h.posted:
		t.Fatal("unexpected tick posted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerTicksOnSecondBoundaries(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(time.Date(2024, 3, 1, 9, 30, 0, int(250*time.Millisecond), time.UTC))
	h.s.Start()
	require.True(t, h.s.Running())
	assert.Equal(t, 1, h.redraws, "start redraws immediately")

	h.clock.Advance(749 * time.Millisecond)
	h.assertIdle(t)

	h.clock.Advance(time.Millisecond)
	h.runNext(t)
	assert.Equal(t, 2, h.redraws)
	assert.Equal(t, 0, h.clock.Now().Nanosecond())

	h.clock.Advance(time.Second)
	h.runNext(t)
	assert.Equal(t, 3, h.redraws)

	h.s.Stop()
}

func TestSchedulerStopCancelsPendingTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	h.s.Start()
	h.s.Stop()
	assert.False(t, h.s.Running())

	h.clock.Advance(3 * time.Second)
	h.assertIdle(t)
	assert.Equal(t, 1, h.redraws)
}

func TestSchedulerDropsTickQueuedBeforeStop(t *testing.T) {
	h := newHarness(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	h.s.Start()
	h.clock.Advance(time.Second)

	var queued func()
	select {
	case queued = <-h.posted:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick posted")
	}

	h.s.Stop()
	queued()
	assert.Equal(t, 1, h.redraws)

	// a restart does not resurrect the stale tick either
	h.s.Start()
	queued()
	assert.Equal(t, 2, h.redraws)
	h.s.Stop()
}

func TestReconcileIsIdempotent(t *testing.T) {
	h := newHarness(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))

	h.s.Reconcile(false)
	assert.False(t, h.s.Running())
	assert.Equal(t, 0, h.redraws)

	h.s.Reconcile(true)
	h.s.Reconcile(true)
	assert.True(t, h.s.Running())
	assert.Equal(t, 1, h.redraws)

	h.s.Reconcile(false)
	h.s.Reconcile(false)
	assert.False(t, h.s.Running())

	h.clock.Advance(2 * time.Second)
	h.assertIdle(t)
}

func TestAmbientTickerStartStop(t *testing.T) {
	ticker := NewAmbientTicker(time.UTC, func() {})
	require.NoError(t, ticker.Start())
	require.NoError(t, ticker.Start())
	assert.True(t, ticker.Running())

	ticker.Stop()
	ticker.Stop()
	assert.False(t, ticker.Running())
}
