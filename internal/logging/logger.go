// Package logging provides the structured slog wrapper used across the
// cart engine: every component gets a *Logger tagged with its module name,
// and trace/span ids are injected automatically when a context carries a
// valid OpenTelemetry span.
package logging

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how logs are written.
type Config struct {
	Service    string
	Module     string
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Logger wraps *slog.Logger with the service/module it belongs to.
type Logger struct {
	*slog.Logger
	Service string
	Module  string
}

// traceHandler injects trace_id/span_id from the context into every record.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

var level = new(slog.LevelVar)

// New builds a Logger from cfg. Pass an empty cfg.File to log to stdout.
func New(cfg Config) *Logger {
	level.Set(parseLevel(cfg.Level))

	replaceAttr := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			a.Key = "timestamp"
		}
		return a
	}

	var w *os.File = os.Stdout
	var handler slog.Handler
	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		handler = slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr})
	}

	logger := slog.New(&traceHandler{Handler: handler}).With(
		slog.String("service", cfg.Service),
		slog.String("module", cfg.Module),
	)

	return &Logger{Logger: logger, Service: cfg.Service, Module: cfg.Module}
}

// With returns a child Logger scoped to module, sharing the same handler.
func (l *Logger) With(module string) *Logger {
	return &Logger{
		Logger:  l.Logger.With(slog.String("module", module)),
		Service: l.Service,
		Module:  module,
	}
}

// SetLevel adjusts the process-wide minimum log level at runtime.
func SetLevel(lvl string) {
	level.Set(parseLevel(lvl))
}

func parseLevel(lvl string) slog.Level {
	switch lvl {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
