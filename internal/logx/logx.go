// Package logx builds the process logger: a console handler (tint or JSON)
// and an optional Fluent Bit sink, fanned out behind one *slog.Logger.
package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

type Config struct {
	AppName string
	Level   string
	JSON    bool
	Writer  io.Writer

	FluentEnabled bool
	FluentHost    string
	FluentPort    int
}

// New returns the logger and a close func that flushes the Fluent client.
func New(cfg Config) (*slog.Logger, func() error, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	level := ParseLevel(cfg.Level)

	var console slog.Handler
	if cfg.JSON {
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		console = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}

	noop := func() error { return nil }
	if !cfg.FluentEnabled {
		return slog.New(console), noop, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		TagPrefix:  cfg.AppName,
		Async:      true,
	})
	if err != nil {
		return slog.New(console), noop, fmt.Errorf("fluent logger: %w", err)
	}
	h := Fanout(console, NewFluentHandler(client, level))
	return slog.New(h).With("app", cfg.AppName), client.Close, nil
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// WithLogger stores a request scoped logger in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithLogger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// Discard is a logger that drops everything; handy in tests and dry runs.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
