package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// AmbientTicker fires once per wall-clock minute. It stands in for the host's
// low-power time tick and runs for the whole lifetime of the face; the
// receiver decides whether a tick matters in the current mode.
type AmbientTicker struct {
	Location *time.Location
	// OnTick runs on the ticker's goroutine.
	OnTick func()

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

func NewAmbientTicker(loc *time.Location, onTick func()) *AmbientTicker {
	if loc == nil {
		loc = time.Local
	}
	return &AmbientTicker{Location: loc, OnTick: onTick}
}

func (a *AmbientTicker) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scheduler != nil {
		return nil
	}

	s := gocron.NewScheduler(a.Location)
	s.SingletonModeAll()
	if _, err := s.Cron("* * * * *").Do(func() {
		if a.OnTick != nil {
			a.OnTick()
		}
	}); err != nil {
		return fmt.Errorf("schedule ambient tick: %w", err)
	}
	s.StartAsync()
	a.scheduler = s
	return nil
}

func (a *AmbientTicker) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scheduler == nil {
		return
	}
	a.scheduler.Stop()
	a.scheduler = nil
}

func (a *AmbientTicker) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scheduler != nil && a.scheduler.IsRunning()
}
