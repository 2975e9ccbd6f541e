package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/viewstodownloads/tiktok-connect/internal/config"
)

// NewLogger creates a JSON zerolog.Logger tagged with the service name and,
// in dev mode, the dev flag. Unknown levels fall back to info.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.DevMode {
		ctx = ctx.Bool("dev", true)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return ctx.Logger().Level(level)
}
