package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during RunN or Run.
// When a queue has no PanicHandler the panic propagates to the draining goroutine.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - queueName: The name of the queue that was draining the task
	// - taskID: The identity of the panicked task
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(queueName string, taskID TaskID, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler reports panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *DefaultPanicHandler) HandlePanic(queueName string, taskID TaskID, panicInfo any, stackTrace []byte) {
	l := h.Logger
	if l == nil {
		l = DefaultLog()
	}
	l.Error(fmt.Sprintf("task panicked: %v", panicInfo),
		F("queue", queueName),
		F("task", taskID.String()),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting queue metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long one RunTask call took.
	RecordTaskDuration(queueName string, kind TaskKind, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(queueName string, panicInfo any)

	// RecordQueueDepth records the number of tasks directly held after a drain pass.
	RecordQueueDepth(queueName string, depth int)

	// RecordTaskCanceled records a successful Cancel.
	RecordTaskCanceled(queueName string)

	// RecordRequeue records a task reinserted after running.
	RecordRequeue(queueName string, pos RequeuePos)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(queueName string, kind TaskKind, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(queueName string, panicInfo any)                          {}
func (m *NilMetrics) RecordQueueDepth(queueName string, depth int)                             {}
func (m *NilMetrics) RecordTaskCanceled(queueName string)                                      {}
func (m *NilMetrics) RecordRequeue(queueName string, pos RequeuePos)                           {}

// =============================================================================
// QueueConfig: Configuration for Queue
// =============================================================================

// QueueConfig holds configuration options for a Queue.
// All handlers are optional; if not provided, default implementations will be used.
type QueueConfig struct {
	// Name labels the queue in logs and metrics.
	Name string

	// Waker is signaled when work arrives. Nil means callers poll with Run.
	Waker Waker

	// Logger receives contract violations and uncaught combinator errors.
	// Defaults to DefaultLog().
	Logger Logger

	// Metrics records execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler recovers task panics when set.
	PanicHandler PanicHandler

	// HistoryCapacity enables an execution history ring of that size when > 0.
	HistoryCapacity int

	// Unsynchronized disables the queue mutex; the queue must then be used from a
	// single goroutine.
	Unsynchronized bool
}

// DefaultQueueConfig returns a thread-safe config with default handlers.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		Name:    "queue",
		Metrics: &NilMetrics{},
	}
}

// Option mutates a QueueConfig.
type Option func(*QueueConfig)

func WithName(name string) Option {
	return func(c *QueueConfig) { c.Name = name }
}

func WithWaker(w Waker) Option {
	return func(c *QueueConfig) { c.Waker = w }
}

func WithLogger(l Logger) Option {
	return func(c *QueueConfig) { c.Logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(c *QueueConfig) { c.Metrics = m }
}

func WithPanicHandler(h PanicHandler) Option {
	return func(c *QueueConfig) { c.PanicHandler = h }
}

// WithHistory keeps the last capacity execution records.
func WithHistory(capacity int) Option {
	return func(c *QueueConfig) { c.HistoryCapacity = capacity }
}

// WithoutLocking selects the single-owner mode.
func WithoutLocking() Option {
	return func(c *QueueConfig) { c.Unsynchronized = true }
}
