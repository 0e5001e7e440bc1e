package nndescent

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with engine-specific context helpers, providing
// structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is nil, a
// default text handler to stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that writes human-readable logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithK adds a k (neighbor count) field.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{Logger: l.Logger.With("k", k)}
}

// WithMetric adds a metric name field.
func (l *Logger) WithMetric(metric string) *Logger {
	return &Logger{Logger: l.Logger.With("metric", metric)}
}

// WithPoints adds a point-count field.
func (l *Logger) WithPoints(n int) *Logger {
	return &Logger{Logger: l.Logger.With("points", n)}
}

// LogBuild logs a finished graph build.
func (l *Logger) LogBuild(iterations, updates int, converged bool, duration time.Duration) {
	l.Info("build finished",
		"iterations", iterations,
		"updates", updates,
		"converged", converged,
		"duration", duration,
	)
}

// LogQuery logs a finished graph query.
func (l *Logger) LogQuery(iterations, updates int, converged bool, duration time.Duration) {
	l.Info("query finished",
		"iterations", iterations,
		"updates", updates,
		"converged", converged,
		"duration", duration,
	)
}
