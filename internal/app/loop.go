package app

import (
	"context"
	"sync"
)

// Loop runs posted functions one at a time on a single goroutine. Everything
// that touches display mode, the redraw timer or the screen runs here.
type Loop struct {
	queue chan func()
	wake  chan struct{}

	mu       sync.Mutex
	overflow []func()
	stopped  bool
	done     chan struct{}
}

func NewLoop(size int) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{
		queue: make(chan func(), size),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Post queues fn. It may be called from any goroutine, including the loop
// itself, and never blocks: once the queue is full further functions wait in
// an overflow list, still in posting order. It returns false once the loop
// has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	if len(l.overflow) == 0 {
		select {
		case l.queue <- fn:
			return true
		default:
		}
	}
	l.overflow = append(l.overflow, fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() { fn(); close(finished) }) {
		return context.Canceled
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes posted functions until ctx is done. Functions still queued
// at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			fn()
		case <-l.wake:
		}
		l.runOverflow(ctx)
	}
}

// runOverflow runs the overflow list once the queue ahead of it is drained.
func (l *Loop) runOverflow(ctx context.Context) {
	l.mu.Lock()
	if len(l.queue) > 0 || len(l.overflow) == 0 {
		l.mu.Unlock()
		return
	}
	batch := l.overflow
	l.overflow = nil
	l.mu.Unlock()

	for _, fn := range batch {
		if ctx.Err() != nil {
			return
		}
		fn()
	}
}

func (l *Loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	l.overflow = nil
	close(l.done)
}
