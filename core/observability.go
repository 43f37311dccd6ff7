package core

import "time"

// TaskExecutionRecord captures a completed task execution event.
type TaskExecutionRecord struct {
	TaskID     TaskID
	Kind       TaskKind
	QueueName  string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Requeue    RequeuePos
	Panicked   bool
}

// QueueStats represents runtime observability state for a queue.
type QueueStats struct {
	Name       string
	Local      int
	Size       int
	Executed   int64
	Canceled   int64
	ThreadSafe bool
	LastTaskID TaskID
	LastTaskAt time.Time
}

// PoolStats represents runtime observability state for a drain pool.
type PoolStats struct {
	ID      string
	Workers int
	Active  int
	Passes  int64
	Running bool
}
