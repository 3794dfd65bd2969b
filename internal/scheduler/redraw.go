// Package scheduler drives periodic redraws of the watch face.
package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the interactive update rate.
const DefaultInterval = time.Second

// NextDelay returns the delay from now until the next interval boundary of
// wall-clock time. The result is always in (0, interval].
func NextDelay(now time.Time, interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = DefaultInterval
	}
	step := interval.Milliseconds()
	if step <= 0 {
		step = 1
	}
	phase := now.UnixMilli() % step
	if phase < 0 {
		phase += step
	}
	return time.Duration(step-phase) * time.Millisecond
}

// RedrawScheduler is a single-slot periodic timer. Timer expiry is handed to
// Post so every tick runs on the UI loop; Start, Stop and Reconcile must be
// called from that loop as well.
type RedrawScheduler struct {
	Clock    clockwork.Clock
	Interval time.Duration
	// Post queues fn on the UI loop.
	Post func(fn func())
	// Redraw requests a frame. Called on the UI loop.
	Redraw func()

	timer   clockwork.Timer
	gen     uint64
	running atomic.Bool
}

func NewRedrawScheduler(clock clockwork.Clock, post func(func()), redraw func()) *RedrawScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedrawScheduler{Clock: clock, Interval: DefaultInterval, Post: post, Redraw: redraw}
}

// Running reports whether the timer is enabled. Safe from any goroutine.
func (s *RedrawScheduler) Running() bool { return s.running.Load() }

// Reconcile starts the timer if it should run and is stopped, or stops it if
// it should not run and is running. Otherwise it does nothing.
func (s *RedrawScheduler) Reconcile(shouldRun bool) {
	switch {
	case shouldRun && !s.Running():
		s.Start()
	case !shouldRun && s.Running():
		s.Stop()
	}
}

// Start redraws immediately and arms the next tick.
func (s *RedrawScheduler) Start() {
	if s.Running() {
		return
	}
	s.running.Store(true)
	s.gen++
	s.tick(s.gen)
}

// Stop cancels the pending tick. A tick already queued on the loop is dropped.
func (s *RedrawScheduler) Stop() {
	if !s.Running() {
		return
	}
	s.running.Store(false)
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *RedrawScheduler) tick(gen uint64) {
	if gen != s.gen || !s.Running() {
		return
	}
	if s.Redraw != nil {
		s.Redraw()
	}
	s.arm(gen)
}

func (s *RedrawScheduler) arm(gen uint64) {
	delay := NextDelay(s.Clock.Now(), s.Interval)
	s.timer = s.Clock.AfterFunc(delay, func() {
		if s.Post == nil {
			return
		}
		s.Post(func() { s.tick(gen) })
	})
}
