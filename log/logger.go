// Package log provides the structured logging interface used throughout the
// hub. It is intentionally slog-shaped so call sites never depend on a
// concrete logging library.
package log

import (
	"context"
	golog "log"
	"strings"
)

type contextKey string

const loggerKey contextKey = "aimp.logger"

var defaultLevel = LevelInfo

// SetDefaultLevel sets the process-wide default log level.
func SetDefaultLevel(level Level) {
	defaultLevel = level
}

// GetDefaultLevel returns the process-wide default log level.
func GetDefaultLevel() Level {
	return defaultLevel
}

// Logger is implemented by every logging backend the hub uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a Logger that includes the given attributes on every
	// subsequent call.
	With(args ...any) Logger
}

// WithLogger returns a new context carrying the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger attached to ctx, or a default logger if none was
// attached.
func Ctx(ctx context.Context) Logger {
	if ctx == nil {
		return New(defaultLevel)
	}
	logger, ok := ctx.Value(loggerKey).(Logger)
	if !ok {
		return New(defaultLevel)
	}
	return logger
}

// LevelFromString converts a config string into a Level, falling back to
// the process default on anything unrecognized.
func LevelFromString(value string) Level {
	switch strings.ToLower(value) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return defaultLevel
	}
}

// Fatal logs the arguments and terminates the process. Reserved for
// startup-time ConfigError/AuthError failures (§7).
func Fatal(args ...any) {
	golog.Fatal(args...)
}
