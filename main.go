package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/rook-computer/watchface/internal/app"
	"github.com/rook-computer/watchface/internal/app/screens"
	"github.com/rook-computer/watchface/internal/buttons"
	"github.com/rook-computer/watchface/internal/clock"
	"github.com/rook-computer/watchface/internal/companion"
	"github.com/rook-computer/watchface/internal/config"
	"github.com/rook-computer/watchface/internal/logging"
	"github.com/rook-computer/watchface/internal/render"
	"github.com/rook-computer/watchface/internal/system"
	"github.com/rook-computer/watchface/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML config file")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	debug := flag.Bool("debug", false, "enable debug logging to the console")
	stdioLog := flag.String("stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+config.EnvStdioLog)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Println("env file error:", err)
	}

	cfg, err := config.Load(afero.NewOsFs(), *configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}
	if *debug {
		cfg.Log.Debug = true
	}
	if *stdioLog != "" {
		cfg.Log.StdioLog = *stdioLog
	}

	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	if cfg.Log.StdioLog != "" {
		if err := redirectStdIO(cfg.Log.StdioLog); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	if err := logging.Setup(cfg.Log); err != nil {
		fmt.Println("logging setup error:", err)
		os.Exit(2)
	}
	logger := logging.New(nil)
	logger.Infof("main", "watch face starting, canvas %dx%d round=%t", cfg.Display.Width, cfg.Display.Height, cfg.Display.Round)

	palette, err := render.PaletteFromTheme(cfg.Theme)
	if err != nil {
		logger.Errorf("main", "theme: %v", err)
		os.Exit(2)
	}

	renderer := render.NewFBRenderer(cfg.Display.Framebuffer, cfg.Display.Width, cfg.Display.Height)
	renderer.Logger = logger
	renderer.Debug = cfg.Log.Debug

	screen := screens.NewWatchFaceScreen(cfg.Layout, palette, clock.DefaultFormats(), cfg.Display.Round)
	a := app.New(cfg, nil, renderer, screen)
	a.Logger = logger
	a.Buttons = buttons.NewEvdev(logger)

	zones := system.NewZoneLoader(cfg.Display.Timezone)
	a.Zone = zones.Load
	if cfg.Display.Timezone == "" {
		a.WatchZone = func(ctx context.Context, onChange func(*time.Location)) error {
			return system.WatchTimeZone(ctx, zones.Path, zones.Load, onChange, logger)
		}
	}

	if cfg.Sync.Enabled() {
		a.Sync = companion.NewMQTTChannel(cfg.Sync, logger)
	} else {
		logger.Infof("sync", "no broker configured, weather disabled")
	}

	if cfg.Web.Enabled {
		serverCfg := web.ServerConfigFrom(cfg.Web)
		server := web.NewHTTPServer(serverCfg, web.NewRouter(serverCfg, web.APIV1Deps{
			Host:        a,
			Weather:     a.Weather(),
			Frames:      renderer,
			Formats:     clock.DefaultFormats(),
			WeatherPath: cfg.Sync.Path,
			PairingURL:  companion.PairingURL(cfg.Sync),
		}))
		server.Logger = logger
		a.Web = server
	}

	console := system.Console{Logger: logger}
	_ = console.EnterGraphics()
	defer func() { _ = console.Restore() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("main", "app error: %v", err)
		_ = console.Restore()
		os.Exit(1)
	}
	logger.Infof("main", "bye")
}
