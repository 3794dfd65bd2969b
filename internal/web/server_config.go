package web

import "github.com/rook-computer/watchface/internal/config"

// ServerConfig contains settings for running the HTTP server.
//
// The intended defaults differ per binary:
// - real device: off unless web.enabled is set
// - simulator:   always on, :8080
type ServerConfig struct {
	ListenAddr string
	DevMode    bool
	// StaticDir, when set to an existing directory, is served at "/" instead
	// of the embedded preview page.
	StaticDir string
}

func ServerConfigFrom(cfg config.WebConfig) ServerConfig {
	addr := cfg.Listen
	if addr == "" {
		addr = ":8080"
	}
	return ServerConfig{ListenAddr: addr, DevMode: cfg.DevMode}
}
