package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger is the leveled sink used by queues.
// Implementations can provide custom logging behavior (e.g., integration with logrus, zap, etc.)
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)

	// Fatal logs a message about an unrecoverable condition. It does not exit;
	// the caller decides how to terminate.
	Fatal(msg string, fields ...Field)

	// Flush writes out anything buffered.
	Flush() error
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// LevelFatal sits above slog.LevelError.
const LevelFatal = slog.Level(12)

// DefaultLogger writes through log/slog and tags every record with its path.
type DefaultLogger struct {
	path string
	out  io.Writer
	mu   sync.Mutex
	h    *slog.Logger
}

// NewDefaultLogger creates a text logger on stderr for the given path.
func NewDefaultLogger(path string) *DefaultLogger {
	return NewDefaultLoggerTo(path, os.Stderr)
}

// NewDefaultLoggerTo creates a text logger writing to w.
func NewDefaultLoggerTo(path string, w io.Writer) *DefaultLogger {
	l := &DefaultLogger{path: path, out: w}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelFatal {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	})
	l.h = slog.New(handler).With(slog.String("path", path))
	return l
}

// Path returns the logger path.
func (l *DefaultLogger) Path() string { return l.path }

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log(slog.LevelDebug, msg, fields) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.log(slog.LevelInfo, msg, fields) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.log(slog.LevelWarn, msg, fields) }
func (l *DefaultLogger) Error(msg string, fields ...Field) { l.log(slog.LevelError, msg, fields) }
func (l *DefaultLogger) Fatal(msg string, fields ...Field) { l.log(LevelFatal, msg, fields) }

// Flush syncs the underlying writer when it supports it.
func (l *DefaultLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.out.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

func (l *DefaultLogger) log(level slog.Level, msg string, fields []Field) {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.h.LogAttrs(context.Background(), level, msg, attrs...)
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
func (l *NoOpLogger) Fatal(msg string, fields ...Field) {}
func (l *NoOpLogger) Flush() error                      { return nil }

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   Logger = NewDefaultLogger("eventqueue")
)

// DefaultLog returns the process-wide logger used when a queue has none configured.
func DefaultLog() Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefaultLog replaces the process-wide logger. A nil logger restores the stderr default.
func SetDefaultLog(l Logger) {
	if l == nil {
		l = NewDefaultLogger("eventqueue")
	}
	defaultLoggerMu.Lock()
	defaultLogger = l
	defaultLoggerMu.Unlock()
}
