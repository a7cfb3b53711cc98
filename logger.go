package covertree

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with covertree-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// LogBuild logs a build or decode.
func (l *Logger) LogBuild(ctx context.Context, op string, points, truncation int, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"points", points,
			"truncation", truncation,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, op+" completed",
		"points", points,
		"truncation", truncation,
	)
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id uint32, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"dimension", dimension,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "insert completed",
		"id", id,
		"dimension", dimension,
	)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, id uint32, err error) {
	if err != nil {
		l.DebugContext(ctx, "remove failed",
			"id", id,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "remove completed",
		"id", id,
	)
}

// LogAnomaly logs one replaced out-of-range identity.
func (l *Logger) LogAnomaly(ctx context.Context, query, k int, id uint32, limit int, replacement uint32) {
	l.WarnContext(ctx, "index returned out-of-range identity",
		"error", ErrIndexAnomaly,
		"id", id,
		"limit", limit,
		"query", query,
		"k", k,
		"replacement", replacement,
	)
}

// LogSnapshot logs a save or load through a blob store.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot "+op+" completed",
		"name", name,
		"bytes", size,
	)
}
