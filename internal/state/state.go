package state

import (
	"image"
	"sync"
	"time"

	"github.com/rook-computer/watchface/internal/clock"
	"github.com/rook-computer/watchface/internal/display"
)

// WeatherSnapshot is the latest reading pushed by the companion device.
// Icon is nil until an icon has been decoded.
type WeatherSnapshot struct {
	MinTemp   string
	MaxTemp   string
	Icon      image.Image
	Received  bool
	UpdatedAt time.Time
}

// State is everything a screen needs to draw one frame.
type State struct {
	Clock    clock.Snapshot
	Mode     display.Mode
	Weather  WeatherSnapshot
	TapCount int
}

type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: State{Mode: display.Mode{AntiAlias: true}}}
}

func (store *Store) Snapshot() State {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

func (store *Store) SetMode(mode display.Mode) {
	store.mu.Lock()
	store.state.Mode = mode
	store.mu.Unlock()
}

func (store *Store) SetClock(snap clock.Snapshot) {
	store.mu.Lock()
	store.state.Clock = snap
	store.mu.Unlock()
}

// SetTemperatures replaces both temperature strings. The icon is left alone.
func (store *Store) SetTemperatures(minTemp, maxTemp string, at time.Time) {
	store.mu.Lock()
	store.state.Weather.MinTemp = minTemp
	store.state.Weather.MaxTemp = maxTemp
	store.state.Weather.Received = true
	store.state.Weather.UpdatedAt = at
	store.mu.Unlock()
}

func (store *Store) SetIcon(icon image.Image) {
	store.mu.Lock()
	store.state.Weather.Icon = icon
	store.mu.Unlock()
}

func (store *Store) RecordTap() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.state.TapCount++
	return store.state.TapCount
}
