package fusego

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogInsert logs a chunk ingestion operation.
func (l *Logger) LogInsert(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"count", count,
		)
	}
}

// LogRetrieve logs a retrieval operation.
func (l *Logger) LogRetrieve(ctx context.Context, topK, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "retrieve failed",
			"top_k", topK,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "retrieve completed",
			"top_k", topK,
			"results", resultsFound,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"count", count,
		)
	}
}

// LogBuildIndex logs a sparse index build.
func (l *Logger) LogBuildIndex(ctx context.Context, docCount int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"documents", docCount,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index build completed",
			"documents", docCount,
		)
	}
}

// LogEviction logs a memory-pressure eviction batch.
func (l *Logger) LogEviction(ctx context.Context, evicted int, freedBytes int64) {
	l.WarnContext(ctx, "chunks evicted",
		"count", evicted,
		"freed_bytes", freedBytes,
	)
}

// LogMemoryWarning logs a budget threshold crossing.
func (l *Logger) LogMemoryWarning(ctx context.Context, usedBytes, maxBytes int64) {
	l.WarnContext(ctx, "memory budget nearly exhausted",
		"used_bytes", usedBytes,
		"max_bytes", maxBytes,
	)
}
