package core

import (
	"sync"
	"testing"
	"time"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

// captureLogger records every entry for assertions.
type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
	flushes int
}

func (l *captureLogger) add(level, msg string, fields []Field) {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: m})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, fields ...Field) { l.add("debug", msg, fields) }
func (l *captureLogger) Info(msg string, fields ...Field)  { l.add("info", msg, fields) }
func (l *captureLogger) Warn(msg string, fields ...Field)  { l.add("warn", msg, fields) }
func (l *captureLogger) Error(msg string, fields ...Field) { l.add("error", msg, fields) }
func (l *captureLogger) Fatal(msg string, fields ...Field) { l.add("fatal", msg, fields) }

func (l *captureLogger) Flush() error {
	l.mu.Lock()
	l.flushes++
	l.mu.Unlock()
	return nil
}

func (l *captureLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// stubTerminate replaces the process exit for the duration of the test and
// returns a counter of how often it was reached.
func stubTerminate(t *testing.T) *int {
	t.Helper()
	calls := new(int)
	prev := terminate
	terminate = func() { *calls++ }
	t.Cleanup(func() { terminate = prev })
	return calls
}

// drain runs q until it holds nothing, the way a single-threaded embedder would.
func drain(q *Queue) {
	q.Run(0)
}

const (
	testTimeout = 5 * time.Second
	testTick    = 5 * time.Millisecond
)
