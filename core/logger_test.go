package core

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDefaultLogger_WritesLevelsAndFields verifies text output carries level, path and fields
// Given: A DefaultLogger writing to a buffer
// When: One message per level is logged
// Then: Every line is present with its level, the path attribute and its fields
func TestDefaultLogger_WritesLevelsAndFields(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	log := NewDefaultLoggerTo("eventqueue.test", &buf)

	// Act
	log.Debug("debug message")
	log.Info("info message", F("queue", "q1"))
	log.Warn("warn message")
	log.Error("error message", F("error", errors.New("bad")))
	log.Fatal("fatal message")

	// Assert
	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "level=FATAL")
	assert.Contains(t, out, "path=eventqueue.test")
	assert.Contains(t, out, "queue=q1")
	assert.Contains(t, out, "error=bad")
	assert.Equal(t, "eventqueue.test", log.Path())
	assert.NoError(t, log.Flush())
}

// TestNoOpLogger verifies the discarding logger accepts every call
func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()

	assert.NotPanics(t, func() {
		log.Debug("x")
		log.Info("x")
		log.Warn("x")
		log.Error("x")
		log.Fatal("x")
	})
	assert.NoError(t, log.Flush())
}

// TestSetDefaultLog verifies replacement and restoration of the process logger
func TestSetDefaultLog(t *testing.T) {
	custom := NewNoOpLogger()

	SetDefaultLog(custom)
	assert.Same(t, custom, DefaultLog())

	SetDefaultLog(nil)
	assert.IsType(t, &DefaultLogger{}, DefaultLog())
}

// TestQueue_LoggerFallsBackToDefault verifies queues without a logger use the process logger
func TestQueue_LoggerFallsBackToDefault(t *testing.T) {
	custom := &captureLogger{}
	SetDefaultLog(custom)
	t.Cleanup(func() { SetDefaultLog(nil) })

	q := NewQueue()

	assert.Same(t, custom, q.Logger())
}
