package eventqueue

import "github.com/Swind/go-event-queue/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the eventqueue package for most use cases.

// Queue is an ordered collection of tasks plus the logic to drain them
type Queue = core.Queue

// Task is a schedulable unit held by one Queue at a time
type Task = core.Task

// TaskID identifies a task process-wide
type TaskID = core.TaskID

// Strand serializes a pipeline of sub-steps as a single task
type Strand[T any] = core.Strand[T]

// RequeuePos is the post-run directive of a task
type RequeuePos = core.RequeuePos

// Callback and step signatures used by the combinators
type (
	Callback             = core.Callback
	ValueCallback[T any] = core.ValueCallback[T]
	ItemStep[T any]      = core.ItemStep[T]
	SeriesStep           = core.SeriesStep
	WaterfallStep[T any] = core.WaterfallStep[T]
	Predicate            = core.Predicate
)

// Waker is the external readiness signal of a queue
type Waker = core.Waker

// Logger is the leveled sink for contract violations and uncaught errors
type Logger = core.Logger

// Option configures a Queue
type Option = core.Option

const (
	NoTaskID     = core.NoTaskID
	RequeueNone  = core.RequeueNone
	RequeueBack  = core.RequeueBack
	RequeueFront = core.RequeueFront
)

// ErrStepPanicked reaches a combinator's end callback when a step panicked and the
// queue's PanicHandler recovered it.
var ErrStepPanicked = core.ErrStepPanicked

// Queue options
var (
	WithName         = core.WithName
	WithWaker        = core.WithWaker
	WithLogger       = core.WithLogger
	WithMetrics      = core.WithMetrics
	WithPanicHandler = core.WithPanicHandler
	WithHistory      = core.WithHistory
	WithoutLocking   = core.WithoutLocking
)

// NewQueue creates a standalone queue.
func NewQueue(opts ...Option) *Queue {
	return core.NewQueue(opts...)
}

// NewStrandOn creates a strand parented to q.
func NewStrandOn[T any](q *Queue, autoRequeue bool) *Strand[T] {
	return core.NewStrand[T](q, autoRequeue)
}
