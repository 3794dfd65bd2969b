package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

const (
	EnvBroker      = "WATCHFACE_BROKER"
	EnvTopicPrefix = "WATCHFACE_TOPIC_PREFIX"
	EnvListenAddr  = "WATCHFACE_LISTEN"
	EnvDevMode     = "WATCHFACE_DEV"
	EnvRound       = "WATCHFACE_ROUND"
	EnvFramebuffer = "WATCHFACE_FB"
	EnvStdioLog    = "WATCHFACE_STDIO_LOG"

	DefaultPath = "/etc/watchface/watchface.toml"
)

// Config is the full watch face configuration. Every field has a default so an
// absent config file yields a working setup.
type Config struct {
	Display DisplayConfig `toml:"display"`
	Theme   ThemeConfig   `toml:"theme"`
	Layout  LayoutConfig  `toml:"layout"`
	Sync    SyncConfig    `toml:"sync"`
	Web     WebConfig     `toml:"web"`
	Log     LogConfig     `toml:"log"`
}

type DisplayConfig struct {
	Width         int    `toml:"width" validate:"min=64,max=4096"`
	Height        int    `toml:"height" validate:"min=64,max=4096"`
	Round         bool   `toml:"round"`
	Framebuffer   string `toml:"framebuffer" validate:"required"`
	LowBitAmbient bool   `toml:"low_bit_ambient"`
	// Timezone overrides the system zone when set (IANA name).
	Timezone string `toml:"timezone"`
}

type ThemeConfig struct {
	Background string `toml:"background" validate:"hexcolor"`
	Text       string `toml:"text" validate:"hexcolor"`
}

// LayoutConfig holds the dimensions resolved on each layout pass, in canvas pixels.
type LayoutConfig struct {
	XOffset        float64 `toml:"x_offset" validate:"gte=0"`
	XOffsetRound   float64 `toml:"x_offset_round" validate:"gte=0"`
	ClockOffset    float64 `toml:"clock_offset" validate:"gte=0"`
	DateOffset     float64 `toml:"date_offset" validate:"gte=0"`
	TextSize       float64 `toml:"text_size" validate:"gt=0"`
	TextSizeRound  float64 `toml:"text_size_round" validate:"gt=0"`
	DateTextSize   float64 `toml:"date_text_size" validate:"gt=0"`
	TempSize       float64 `toml:"temp_size" validate:"gt=0"`
	TempPadding    float64 `toml:"temp_padding" validate:"gte=0"`
	IconWidth      float64 `toml:"icon_width" validate:"gt=0"`
	SeparatorWidth float64 `toml:"separator_width" validate:"gt=0"`
}

type SyncConfig struct {
	// Broker is empty when the companion sync channel is disabled.
	Broker         string `toml:"broker"`
	TopicPrefix    string `toml:"topic_prefix"`
	Path           string `toml:"path" validate:"required,startswith=/"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	ClientIDPrefix string `toml:"client_id_prefix" validate:"required"`
	ConnectTimeout int    `toml:"connect_timeout_seconds" validate:"min=1,max=120"`
}

func (c SyncConfig) Enabled() bool { return strings.TrimSpace(c.Broker) != "" }

func (c SyncConfig) Timeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
	DevMode bool   `toml:"dev"`
}

type LogConfig struct {
	File       string `toml:"file"`
	Debug      bool   `toml:"debug"`
	MaxSizeMB  int    `toml:"max_size_mb" validate:"min=1"`
	MaxBackups int    `toml:"max_backups" validate:"min=0"`
	StdioLog   string `toml:"stdio_log"`
}

func Default() Config {
	return Config{
		Display: DisplayConfig{
			Width:       320,
			Height:      320,
			Framebuffer: "/dev/fb0",
		},
		Theme: ThemeConfig{
			Background: "#03a9f4",
			Text:       "#ffffff",
		},
		Layout: LayoutConfig{
			XOffset:        15,
			XOffsetRound:   25,
			ClockOffset:    40,
			DateOffset:     16,
			TextSize:       40,
			TextSizeRound:  45,
			DateTextSize:   15,
			TempSize:       28,
			TempPadding:    8,
			IconWidth:      40,
			SeparatorWidth: 1,
		},
		Sync: SyncConfig{
			TopicPrefix:    "sunshine",
			Path:           "/weather",
			ClientIDPrefix: "watchface-",
			ConnectTimeout: 5,
		},
		Web: WebConfig{
			Listen: ":8080",
		},
		Log: LogConfig{
			File:       "watchface.log",
			MaxSizeMB:  1,
			MaxBackups: 2,
		},
	}
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(fsys afero.Fs, path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fsys, path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBroker); ok {
		c.Sync.Broker = v
	}
	if v, ok := lookup(EnvTopicPrefix); ok {
		c.Sync.TopicPrefix = v
	}
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.Web.Listen = v
	}
	if v, ok := lookup(EnvFramebuffer); ok && v != "" {
		c.Display.Framebuffer = v
	}
	if v, ok := lookup(EnvStdioLog); ok {
		c.Log.StdioLog = v
	}
	for _, b := range []struct {
		key string
		dst *bool
	}{
		{EnvDevMode, &c.Web.DevMode},
		{EnvRound, &c.Display.Round},
	} {
		raw, ok := lookup(b.key)
		if !ok || raw == "" {
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s must be a boolean (got %q): %w", b.key, raw, err)
		}
		*b.dst = parsed
	}
	return nil
}

func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			msgs := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
