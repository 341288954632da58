package log

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level mirrors slog.Level so config files can use plain strings.
type Level slog.Level

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// StructuredLogger implements Logger on top of log/slog, rendered with tint
// for readable, colorized console output.
type StructuredLogger struct {
	logger *slog.Logger
}

// New returns a console logger at the given minimum level.
func New(level Level) *StructuredLogger {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
		TimeFormat: time.Kitchen,
		Level:      slog.Level(level),
	})
	return &StructuredLogger{logger: slog.New(handler)}
}

func (l *StructuredLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *StructuredLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *StructuredLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *StructuredLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *StructuredLogger) With(args ...any) Logger {
	return &StructuredLogger{logger: l.logger.With(args...)}
}

// componentID returns a short, consistent prefix like "session:abc123" for
// log lines scoped to one entity — used by callers via With("component", id).
func componentID(kind, id string) string {
	var sb strings.Builder
	sb.WriteString(kind)
	sb.WriteByte(':')
	if len(id) > 12 {
		sb.WriteString(id[:12])
	} else {
		sb.WriteString(id)
	}
	return sb.String()
}

// Component is a small helper for readable log attribution, e.g.
// logger.With(log.Component("session", sessionID))
func Component(kind, id string) (string, string) {
	return "component", componentID(kind, id)
}
