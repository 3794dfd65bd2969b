package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/rook-computer/watchface/internal/app/screens"
	"github.com/rook-computer/watchface/internal/buttons"
	"github.com/rook-computer/watchface/internal/clock"
	"github.com/rook-computer/watchface/internal/companion"
	"github.com/rook-computer/watchface/internal/config"
	"github.com/rook-computer/watchface/internal/display"
	"github.com/rook-computer/watchface/internal/render"
	"github.com/rook-computer/watchface/internal/scheduler"
	"github.com/rook-computer/watchface/internal/state"
	"github.com/rook-computer/watchface/internal/weather"
	"github.com/rook-computer/watchface/internal/web"
)

// TimeTicker delivers the low-power minute tick.
type TimeTicker interface {
	Start() error
	Stop()
}

// App owns every part of the watch face and plays the host: it turns
// visibility, ambient, insets, tap and time events into loop work.
type App struct {
	Config  config.Config
	Store   *state.Store
	Render  render.Renderer
	Screen  *screens.WatchFaceScreen
	Sync    companion.Channel
	Buttons buttons.Buttons
	Web     web.Server
	Ticker  TimeTicker
	// Zone reloads the display time zone; called whenever the face becomes visible.
	Zone func() (*time.Location, error)
	// WatchZone blocks until ctx is done, reporting zone changes.
	WatchZone func(ctx context.Context, onChange func(*time.Location)) error
	Logger    Logger

	clock   clockwork.Clock
	loop    *Loop
	display *display.Controller
	redraw  *scheduler.RedrawScheduler
	weather *weather.Ingestor

	// loop only
	loc *time.Location

	round    atomic.Bool
	zoneName atomic.Value
	ready    chan struct{}
	exitOnce atomic.Bool
	exitCh   chan error
}

func New(cfg config.Config, clk clockwork.Clock, renderer render.Renderer, screen *screens.WatchFaceScreen) *App {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	app := &App{
		Config: cfg,
		Store:  state.NewStore(),
		Render: renderer,
		Screen: screen,
		Logger: NoopLogger{},
		clock:  clk,
		loop:   NewLoop(0),
		loc:    time.Local,
		ready:  make(chan struct{}),
		exitCh: make(chan error, 1),
	}
	app.zoneName.Store(time.Local.String())
	post := func(fn func()) { app.loop.Post(fn) }
	app.redraw = scheduler.NewRedrawScheduler(clk, post, app.invalidate)
	app.display = display.NewController(app.redraw)
	app.weather = weather.NewIngestor(cfg.Sync.Path, app.Store, post, app.invalidate)
	app.weather.Clock = clk
	app.Ticker = scheduler.NewAmbientTicker(time.Local, app.TimeTick)
	return app
}

// Weather is the ingest side of the companion channel.
func (app *App) Weather() *weather.Ingestor { return app.weather }

// Ready is closed once Start has queued the initial host events.
func (app *App) Ready() <-chan struct{} { return app.ready }

// Exit requests the app to stop running.
func (app *App) Exit(err error) {
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

func (app *App) Start(ctx context.Context) error {
	app.weather.Logger = app.Logger

	if app.Render == nil {
		app.Render = &render.NoopRenderer{}
	}
	if err := app.Render.Start(ctx); err != nil {
		app.Logger.Errorf("app", "renderer start error: %v", err)
		return err
	}
	defer app.Render.Stop()
	if app.Screen != nil {
		app.Render.SetScreen(app.Screen)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return app.loop.Run(gctx) })

	if app.Ticker != nil {
		if err := app.Ticker.Start(); err != nil {
			app.Logger.Errorf("app", "ambient ticker: %v", err)
		}
	}
	if app.Sync != nil {
		g.Go(func() error {
			// One attempt. Without it the face runs with no weather.
			if err := app.Sync.Connect(gctx, app.weather.HandleEvent); err != nil {
				app.Logger.Errorf("sync", "companion sync unavailable: %v", err)
			}
			return nil
		})
	}
	if app.Buttons != nil {
		if err := app.Buttons.Start(gctx); err != nil {
			app.Logger.Errorf("input", "buttons start error: %v", err)
		} else {
			g.Go(func() error { app.pumpButtons(gctx); return nil })
		}
	}
	if app.WatchZone != nil {
		g.Go(func() error {
			if err := app.WatchZone(gctx, app.TimeZoneChanged); err != nil {
				app.Logger.Errorf("tz", "zone watcher stopped: %v", err)
			}
			return nil
		})
	}
	if app.Web != nil {
		if err := app.Web.Start(gctx); err != nil {
			app.Logger.Errorf("web", "web server start error: %v", err)
		}
	}

	app.SetLowBitAmbient(app.Config.Display.LowBitAmbient)
	app.ApplyInsets(app.Config.Display.Round)
	app.SetVisible(true)
	close(app.ready)

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-app.exitCh:
	}
	cancel()
	_ = g.Wait()
	app.shutdown()
	return err
}

// shutdown runs after the loop has stopped, so loop-only state is safe here.
func (app *App) shutdown() {
	app.redraw.Stop()
	if app.Ticker != nil {
		app.Ticker.Stop()
	}
	app.weather.Close()
	if app.Sync != nil {
		_ = app.Sync.Close()
	}
	if app.Buttons != nil {
		_ = app.Buttons.Stop()
	}
	if app.Web != nil {
		_ = app.Web.Stop()
	}
	app.Logger.Infof("app", "stopped")
}

func (app *App) pumpButtons(ctx context.Context) {
	events := app.Buttons.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev {
			case buttons.Tap:
				w, h := app.Config.Display.Width, app.Config.Display.Height
				app.Tap(buttons.TapTap, w/2, h/2)
			case buttons.ToggleAmbient:
				app.loop.Post(func() { app.setAmbient(!app.display.Mode().Ambient) })
			case buttons.ToggleVisible:
				app.loop.Post(func() { app.setVisible(!app.display.Mode().Visible) })
			case buttons.Exit:
				app.Logger.Infof("input", "exit requested")
				app.Exit(nil)
			}
		}
	}
}

// Host callbacks. Each may be called from any goroutine and runs on the loop.

func (app *App) SetVisible(visible bool) {
	app.loop.Post(func() { app.setVisible(visible) })
}

func (app *App) SetAmbient(ambient bool) {
	app.loop.Post(func() { app.setAmbient(ambient) })
}

func (app *App) SetLowBitAmbient(lowBit bool) {
	app.loop.Post(func() {
		app.display.SetLowBitAmbient(lowBit)
		app.Store.SetMode(app.display.Mode())
	})
}

// ApplyInsets starts a layout pass for a round or rectangular screen.
func (app *App) ApplyInsets(round bool) {
	app.round.Store(round)
	app.loop.Post(func() {
		if app.Screen != nil {
			app.Screen.ApplyInsets(round)
		}
		app.invalidate()
	})
}

// Tap counts completed taps. Touch and cancel phases are ignored.
func (app *App) Tap(tapType buttons.TapType, x, y int) {
	app.loop.Post(func() {
		if tapType != buttons.TapTap {
			return
		}
		n := app.Store.RecordTap()
		app.Logger.Infof("input", "tap %d at %d,%d", n, x, y)
	})
}

// TimeTick is the minute tick; it only redraws while visible in ambient.
func (app *App) TimeTick() {
	app.loop.Post(func() {
		if m := app.display.Mode(); m.Visible && m.Ambient {
			app.invalidate()
		}
	})
}

func (app *App) TimeZoneChanged(loc *time.Location) {
	if loc == nil {
		return
	}
	app.loop.Post(func() {
		app.setZone(loc)
		app.invalidate()
	})
}

func (app *App) setVisible(visible bool) {
	if visible {
		app.refreshZone()
	}
	app.display.SetVisible(visible)
	app.Store.SetMode(app.display.Mode())
	app.Logger.Infof("display", "visible=%t timer=%t", visible, app.redraw.Running())
}

func (app *App) setAmbient(ambient bool) {
	changed := app.display.SetAmbient(ambient)
	app.Store.SetMode(app.display.Mode())
	if changed {
		app.Logger.Infof("display", "ambient=%t antialias=%t", ambient, app.display.Mode().AntiAlias)
		app.invalidate()
	}
}

func (app *App) refreshZone() {
	if app.Zone == nil {
		return
	}
	loc, err := app.Zone()
	if err != nil {
		app.Logger.Errorf("tz", "keeping %s: %v", app.loc, err)
		return
	}
	app.setZone(loc)
}

func (app *App) setZone(loc *time.Location) {
	app.loc = loc
	app.zoneName.Store(loc.String())
}

// invalidate draws a frame now if the face is visible. Loop only.
func (app *App) invalidate() {
	mode := app.display.Mode()
	app.Store.SetMode(mode)
	if !mode.Visible {
		return
	}
	app.Store.SetClock(clock.Take(app.clock.Now(), app.loc))
	app.Render.RedrawWithState(app.Store.Snapshot())
}

// Status reports the current face state. Safe from any goroutine.
func (app *App) Status() web.Status {
	connected := false
	if app.Sync != nil {
		connected = app.Sync.Connected()
	}
	zone, _ := app.zoneName.Load().(string)
	return web.Status{
		State:         app.Store.Snapshot(),
		TimerRunning:  app.redraw.Running(),
		Round:         app.round.Load(),
		SyncConnected: connected,
		TimeZone:      zone,
	}
}

// Logger interface and implementations
type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type NoopLogger struct{}

func (NoopLogger) Infof(component, format string, args ...interface{})  {}
func (NoopLogger) Errorf(component, format string, args ...interface{}) {}
