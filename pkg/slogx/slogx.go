// Package slogx wires log/slog for the session daemon and CLI: handler
// selection from config, a request scoped logger in context.Context, and
// HTTP access logging.
package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler. Zero values give JSON at info level on stdout.
type Config struct {
	Service string
	Version string
	Env     string
	Level   string
	Format  string // "json" or "text"
	Output  io.Writer
}

// New builds a logger tagged with service, version and env, and makes it
// the process default. Source locations are included outside prod.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.Env == "dev",
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(h.WithAttrs([]slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	}))
	slog.SetDefault(logger)
	return logger
}

// Discard drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel is lenient: unknown names mean info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if strings.EqualFold(strings.TrimSpace(s), "warning") {
		return slog.LevelWarn
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Err logs err under the "error" key.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
