package colseg

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with colseg-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithSegment adds the segment path to the logger.
func (l *Logger) WithSegment(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("segment", path),
	}
}

// WithColumn adds a column field to the logger.
func (l *Logger) WithColumn(column string) *Logger {
	return &Logger{
		Logger: l.Logger.With("column", column),
	}
}

// WithStore adds the deep-store segment name to the logger.
func (l *Logger) WithStore(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("store_name", name),
	}
}

// LogCommit logs the outcome of an Update.
func (l *Logger) LogCommit(ctx context.Context, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"duration", duration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "update committed",
			"duration", duration,
		)
	}
}

// LogAbort logs an Update that was rolled back because fn returned err.
func (l *Logger) LogAbort(ctx context.Context, cause, abortErr error) {
	if abortErr != nil {
		l.ErrorContext(ctx, "update abort failed",
			"cause", cause,
			"error", abortErr,
		)
	} else {
		l.DebugContext(ctx, "update aborted",
			"cause", cause,
		)
	}
}

// LogSessionConflict logs a refused session.
func (l *Logger) LogSessionConflict(ctx context.Context, requested string) {
	l.DebugContext(ctx, "session refused",
		"requested", requested,
	)
}

// LogPush logs a deep-store push.
func (l *Logger) LogPush(ctx context.Context, name string, version uint64, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "push failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "push completed",
			"name", name,
			"version", version,
			"bytes", bytes,
		)
	}
}

// LogFetch logs a deep-store fetch.
func (l *Logger) LogFetch(ctx context.Context, name, localPath string, version uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fetch failed",
			"name", name,
			"path", localPath,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "fetch completed",
			"name", name,
			"path", localPath,
			"version", version,
		)
	}
}
