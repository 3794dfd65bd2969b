// Package logging configures the process-wide zerolog logger and adapts it to
// the small component logger interface used across the watch face.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rook-computer/watchface/internal/config"
)

// Setup routes the global logger to a rotating log file plus any extra writers.
// Debug mode also mirrors output to the console.
func Setup(cfg config.LogConfig, writers ...io.Writer) error {
	var out []io.Writer
	if cfg.File != "" {
		out = append(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	}
	if cfg.Debug {
		out = append(out, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	out = append(out, writers...)
	if len(out) == 0 {
		return fmt.Errorf("no log outputs configured")
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(io.MultiWriter(out...)).
		With().Timestamp().Caller().Logger()
	return nil
}

// Logger writes component-tagged messages to a zerolog logger.
type Logger struct {
	zl *zerolog.Logger
}

// New returns a Logger backed by zl, or by the global logger when zl is nil.
func New(zl *zerolog.Logger) Logger { return Logger{zl: zl} }

func (l Logger) logger() *zerolog.Logger {
	if l.zl != nil {
		return l.zl
	}
	return &log.Logger
}

func (l Logger) Debugf(component string, format string, args ...interface{}) {
	l.logger().Debug().Str("component", component).Msgf(format, args...)
}

func (l Logger) Infof(component string, format string, args ...interface{}) {
	l.logger().Info().Str("component", component).Msgf(format, args...)
}

func (l Logger) Errorf(component string, format string, args ...interface{}) {
	l.logger().Error().Str("component", component).Msgf(format, args...)
}
