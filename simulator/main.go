package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/rook-computer/watchface/internal/app"
	"github.com/rook-computer/watchface/internal/app/screens"
	"github.com/rook-computer/watchface/internal/clock"
	"github.com/rook-computer/watchface/internal/companion"
	"github.com/rook-computer/watchface/internal/config"
	"github.com/rook-computer/watchface/internal/logging"
	"github.com/rook-computer/watchface/internal/render"
	"github.com/rook-computer/watchface/internal/system"
	"github.com/rook-computer/watchface/internal/web"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	listenAddr := flag.String("listen", "", "http listen address; also configurable via "+config.EnvListenAddr)
	devMode := flag.Bool("dev", false, "enable dev mode; also configurable via "+config.EnvDevMode)
	staticDir := flag.String("static-dir", "", "serve static UI from this directory (optional); when empty, embedded web UI assets are served")
	scenario := flag.String("scenario", "sunny", "startup weather scenario: sunny | rainy | no-icon")
	round := flag.Bool("round", false, "simulate a round screen")
	frameFile := flag.String("frame-file", "", "also write every frame to this PNG file")
	flag.Parse()

	fsys := afero.NewOsFs()
	cfg, err := config.Load(fsys, *configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}
	if *listenAddr != "" {
		cfg.Web.Listen = *listenAddr
	}
	if *devMode {
		cfg.Web.DevMode = true
	}
	if *round {
		cfg.Display.Round = true
	}
	cfg.Log.File = ""
	if err := logging.Setup(cfg.Log, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}); err != nil {
		fmt.Println("logging setup error:", err)
		os.Exit(2)
	}
	logger := logging.New(nil)

	palette, err := render.PaletteFromTheme(cfg.Theme)
	if err != nil {
		fmt.Println("theme error:", err)
		os.Exit(2)
	}

	renderer := render.NewImageRenderer(cfg.Display.Width, cfg.Display.Height)
	if *frameFile != "" {
		path := *frameFile
		renderer.OnFrame = func(frame *image.RGBA) {
			if err := writeFrame(fsys, path, frame); err != nil {
				logger.Errorf("sim", "write frame: %v", err)
			}
		}
	}

	screen := screens.NewWatchFaceScreen(cfg.Layout, palette, clock.DefaultFormats(), cfg.Display.Round)
	a := app.New(cfg, nil, renderer, screen)
	a.Logger = logger
	a.Zone = system.NewZoneLoader(cfg.Display.Timezone).Load
	if cfg.Sync.Enabled() {
		a.Sync = companion.NewMQTTChannel(cfg.Sync, logger)
	}

	control := NewSimControl(a.Weather(), a, *scenario)

	serverCfg := web.ServerConfigFrom(cfg.Web)
	serverCfg.StaticDir = *staticDir
	router := web.NewRouter(serverCfg, web.APIV1Deps{
		Host:        a,
		Weather:     a.Weather(),
		Frames:      renderer,
		Formats:     clock.DefaultFormats(),
		WeatherPath: cfg.Sync.Path,
		PairingURL:  companion.PairingURL(cfg.Sync),
	})
	registerSimEndpoints(router, control)
	server := web.NewHTTPServer(serverCfg, router)
	server.Logger = logger
	a.Web = server

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		select {
		case <-a.Ready():
		case <-processCtx.Done():
			return
		}
		if err := control.ApplyScenario(*scenario); err != nil {
			logger.Errorf("sim", "scenario init error: %v", err)
		}
		fmt.Println("Watch face simulator listening on", server.ListenAddr())
		fmt.Println("Scenario:", control.Current())
	}()

	if err := a.Start(processCtx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println("simulator error:", err)
		os.Exit(1)
	}
}

// writeFrame replaces path atomically so viewers never see a torn PNG.
func writeFrame(fsys afero.Fs, path string, frame image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return fsys.Rename(tmp, path)
}
