package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rook-computer/watchface/internal/app/screens"
	"github.com/rook-computer/watchface/internal/buttons"
	"github.com/rook-computer/watchface/internal/clock"
	"github.com/rook-computer/watchface/internal/companion"
	"github.com/rook-computer/watchface/internal/config"
	"github.com/rook-computer/watchface/internal/render"
	"github.com/rook-computer/watchface/internal/state"
	"github.com/rook-computer/watchface/internal/weather"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []state.State
	screen render.Screen
}

func (r *frameRecorder) Start(context.Context) error { return nil }
func (r *frameRecorder) Stop() error                 { return nil }
func (r *frameRecorder) SetScreen(s render.Screen)   { r.screen = s }

func (r *frameRecorder) RedrawWithState(s state.State) {
	r.mu.Lock()
	r.frames = append(r.frames, s)
	r.mu.Unlock()
	if r.screen != nil {
		r.screen.Draw(render.NewRecordingDrawer(320, 320), s)
	}
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *frameRecorder) last() state.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

type fakeChannel struct {
	mu       sync.Mutex
	listener companion.Listener
	closed   bool
	err      error
}

func (c *fakeChannel) Connect(_ context.Context, l companion.Listener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
	return c.err
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener != nil && c.err == nil && !c.closed
}

func (c *fakeChannel) deliver(ev companion.DataEvent) bool {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	if l == nil {
		return false
	}
	l(ev)
	return true
}

type harness struct {
	app    *App
	clock  *clockwork.FakeClock
	frames *frameRecorder
	sync   *fakeChannel
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		clock:  clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 30, 0, int(400*time.Millisecond), time.UTC)),
		frames: &frameRecorder{},
		sync:   &fakeChannel{},
		done:   make(chan error, 1),
	}
	screen := screens.NewWatchFaceScreen(cfg.Layout, render.DefaultPalette, clock.DefaultFormats(), cfg.Display.Round)
	h.app = New(cfg, h.clock, h.frames, screen)
	h.app.Ticker = nil
	h.app.Sync = h.sync
	h.app.Zone = func() (*time.Location, error) { return time.UTC, nil }

	var ctx context.Context
	ctx, h.cancel = context.WithCancel(context.Background())
	go func() { h.done <- h.app.Start(ctx) }()

	select {
	case <-h.app.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("app never became ready")
	}
	h.flush(t)
	t.Cleanup(h.stop)
	return h
}

// flush waits until everything posted so far has run on the loop.
func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.app.loop.Call(ctx, func() {}))
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func (h *harness) waitFrames(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.flush(t)
		return h.frames.count() >= n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartDrawsImmediatelyAndTicksEachSecond(t *testing.T) {
	h := start(t, nil)

	require.Equal(t, 1, h.frames.count(), "visible and interactive draws at once")
	assert.True(t, h.app.Status().TimerRunning)
	assert.Equal(t, 9, h.frames.last().Clock.Hour)

	h.clock.Advance(600 * time.Millisecond)
	h.waitFrames(t, 2)
	assert.Equal(t, 0, h.frames.last().Clock.Date.Nanosecond())

	h.clock.Advance(time.Second)
	h.waitFrames(t, 3)
}

func TestAmbientStopsTimerAndUsesMinuteTick(t *testing.T) {
	h := start(t, nil)

	h.app.SetAmbient(true)
	h.flush(t)
	assert.False(t, h.app.Status().TimerRunning)
	require.Equal(t, 2, h.frames.count(), "entering ambient redraws once")
	assert.True(t, h.frames.last().Mode.Ambient)
	assert.True(t, h.frames.last().Mode.AntiAlias)

	h.clock.Advance(3 * time.Second)
	time.Sleep(20 * time.Millisecond)
	h.flush(t)
	assert.Equal(t, 2, h.frames.count())

	h.app.TimeTick()
	h.flush(t)
	assert.Equal(t, 3, h.frames.count())

	h.app.SetAmbient(true)
	h.flush(t)
	assert.Equal(t, 3, h.frames.count(), "no change, no redraw")

	h.app.SetAmbient(false)
	h.flush(t)
	assert.True(t, h.app.Status().TimerRunning)
	assert.False(t, h.frames.last().Mode.Ambient)
}

func TestLowBitAmbientDisablesAntiAlias(t *testing.T) {
	h := start(t, func(c *config.Config) { c.Display.LowBitAmbient = true })

	h.app.SetAmbient(true)
	h.flush(t)
	assert.False(t, h.frames.last().Mode.AntiAlias)

	h.app.SetAmbient(false)
	h.flush(t)
	assert.True(t, h.frames.last().Mode.AntiAlias)
}

func TestHiddenFaceDoesNotDraw(t *testing.T) {
	h := start(t, nil)

	h.app.SetVisible(false)
	h.flush(t)
	assert.False(t, h.app.Status().TimerRunning)
	n := h.frames.count()

	h.app.TimeTick()
	h.app.ApplyInsets(true)
	h.clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	h.flush(t)
	assert.Equal(t, n, h.frames.count())
	assert.True(t, h.app.Status().Round)

	h.app.SetVisible(true)
	h.flush(t)
	assert.Equal(t, n+1, h.frames.count())
}

func TestWeatherFromSyncChannel(t *testing.T) {
	h := start(t, nil)

	require.Eventually(t, func() bool {
		return h.sync.deliver(companion.DataEvent{
			Type: companion.EventChanged,
			Path: "/weather",
			Data: map[string]any{weather.KeyMinTemp: 15.4, weather.KeyMaxTemp: 22.6},
		})
	}, 2*time.Second, 10*time.Millisecond)
	h.flush(t)

	w := h.frames.last().Weather
	assert.Equal(t, "15°", w.MinTemp)
	assert.Equal(t, "23°", w.MaxTemp)
	assert.True(t, h.app.Status().SyncConnected)
}

func TestTapsAreCounted(t *testing.T) {
	h := start(t, nil)

	h.app.Tap(buttons.TapTouch, 1, 1)
	h.app.Tap(buttons.TapTap, 1, 1)
	h.app.Tap(buttons.TapTouchCancel, 1, 1)
	h.app.Tap(buttons.TapTap, 2, 2)
	h.flush(t)
	assert.Equal(t, 2, h.app.Status().State.TapCount)
}

func TestTimeZoneChangeAppliesToNextFrame(t *testing.T) {
	h := start(t, nil)

	tokyo := time.FixedZone("JST", 9*60*60)
	h.app.TimeZoneChanged(tokyo)
	h.flush(t)
	assert.Equal(t, 18, h.frames.last().Clock.Hour)
	assert.Equal(t, "JST", h.app.Status().TimeZone)
}

func TestButtonsDriveTheFace(t *testing.T) {
	cfg := config.Default()
	btn := buttons.NewChannelButtons()
	a := New(cfg, clockwork.NewFakeClock(), &frameRecorder{}, nil)
	a.Ticker = nil
	a.Buttons = btn

	done := make(chan error, 1)
	go func() { done <- a.Start(context.Background()) }()
	<-a.Ready()

	btn.Press(buttons.ToggleAmbient)
	btn.Press(buttons.Tap)
	require.Eventually(t, func() bool {
		st := a.Status().State
		return st.Mode.Ambient && st.TapCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	btn.Press(buttons.Exit)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("exit button did not stop the app")
	}
}

func TestSyncFailureIsNotFatal(t *testing.T) {
	h := &fakeChannel{err: errors.New("refused")}
	a := New(config.Default(), clockwork.NewFakeClock(), &frameRecorder{}, nil)
	a.Ticker = nil
	a.Sync = h

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()
	<-a.Ready()
	assert.False(t, a.Status().SyncConnected)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, h.closed)
}

func TestLoopPostAfterStop(t *testing.T) {
	l := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = l.Run(ctx); close(done) }()

	ran := make(chan struct{})
	require.True(t, l.Post(func() { close(ran) }))
	<-ran

	cancel()
	<-done
	assert.False(t, l.Post(func() {}))
	assert.Error(t, l.Call(context.Background(), func() {}))
}

func TestLoopPostFromLoopDoesNotBlock(t *testing.T) {
	l := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	var order []int
	finished := make(chan struct{})
	require.True(t, l.Post(func() {
		for i := 0; i < 5; i++ {
			i := i
			assert.True(t, l.Post(func() { order = append(order, i) }))
		}
		l.Post(func() { close(finished) })
	}))

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stalled on a self-post")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
