package core

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Queue is an ordered, double-ended collection of tasks plus the logic that drains
// and reinserts them.
//
// A queue built with the default config is safe for concurrent producers and
// consumers; its mutex is held only while the collection is mutated, never while a
// task runs, so a running task may push further work onto the same queue.
type Queue struct {
	name       string
	threadSafe bool

	mu    sync.Mutex
	tasks taskDeque

	waker        Waker
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler
	history      *executionHistory
	observed     bool

	// onPanic is told about every panic recovered while running a task.
	onPanic func(id TaskID, rec any)

	executed atomic.Int64
	canceled atomic.Int64
}

// NewQueue creates a queue configured by opts on top of DefaultQueueConfig.
func NewQueue(opts ...Option) *Queue {
	cfg := DefaultQueueConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return NewQueueWithConfig(cfg)
}

// NewQueueWithConfig creates a queue from an explicit config.
func NewQueueWithConfig(cfg *QueueConfig) *Queue {
	if cfg == nil {
		cfg = DefaultQueueConfig()
	}
	q := &Queue{
		name:         cfg.Name,
		threadSafe:   !cfg.Unsynchronized,
		tasks:        newTaskDeque(),
		waker:        cfg.Waker,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		panicHandler: cfg.PanicHandler,
	}
	if q.name == "" {
		q.name = "queue"
	}
	if q.metrics == nil {
		q.metrics = &NilMetrics{}
	}
	if cw, ok := q.waker.(*ChanWaker); ok && cw == nil {
		q.waker = nil
	}
	if cfg.HistoryCapacity > 0 {
		q.history = newExecutionHistory(cfg.HistoryCapacity)
	}
	_, nilMetrics := q.metrics.(*NilMetrics)
	q.observed = q.history != nil || !nilMetrics
	return q
}

func (q *Queue) lock() {
	if q.threadSafe {
		q.mu.Lock()
	}
}

func (q *Queue) unlock() {
	if q.threadSafe {
		q.mu.Unlock()
	}
}

// Name returns the queue label used in logs and metrics.
func (q *Queue) Name() string { return q.name }

// IsThreadSafe reports whether the queue guards its collection with a mutex.
func (q *Queue) IsThreadSafe() bool { return q.threadSafe }

// Logger returns the queue's logger, falling back to the process default.
func (q *Queue) Logger() Logger {
	if q.logger == nil {
		return DefaultLog()
	}
	return q.logger
}

// Activate signals the attached waker, if any.
func (q *Queue) Activate() {
	if q.waker != nil {
		q.waker.Activate()
	}
}

// LocalSize returns the number of tasks held directly by this queue.
func (q *Queue) LocalSize() int {
	q.lock()
	defer q.unlock()
	return q.tasks.Len()
}

// Size returns the aggregate backlog: the sum of Size() of every held task, so
// pending strand sub-steps are included.
func (q *Queue) Size() int {
	q.lock()
	defer q.unlock()
	return q.tasks.SumSize()
}

// =============================================================================
// Insertion and cancellation
// =============================================================================

// PushBack wraps fn into a new task at the back of the queue and returns its id.
func (q *Queue) PushBack(fn func()) TaskID {
	return q.pushFunc(fn, false)
}

// PushFront wraps fn into a new task at the front of the queue and returns its id.
func (q *Queue) PushFront(fn func()) TaskID {
	return q.pushFunc(fn, true)
}

func (q *Queue) pushFunc(fn func(), front bool) TaskID {
	if fn == nil {
		q.Logger().Warn("ignoring nil task", F("queue", q.name))
		return NoTaskID
	}
	t := newPlainTask(q, fn)
	q.lock()
	if front {
		q.tasks.PushFront(t)
	} else {
		q.tasks.PushBack(t)
	}
	q.unlock()
	q.Activate()
	return t.id
}

// PushTaskBack reinserts an existing task owned by q at the back.
// Unless the task forces the push, a task already held by q is left in place.
func (q *Queue) PushTaskBack(t Task) (TaskID, error) {
	return q.pushTask(t, false)
}

// PushTaskFront reinserts an existing task owned by q at the front.
func (q *Queue) PushTaskFront(t Task) (TaskID, error) {
	return q.pushTask(t, true)
}

func (q *Queue) pushTask(t Task, front bool) (TaskID, error) {
	if t == nil {
		return NoTaskID, ErrNilTask
	}
	if t.Owner() != q {
		return t.ID(), ErrForeignTask
	}
	q.insert(t, front, t.ForcePush())
	if t.ActivateOnRequeue() {
		q.Activate()
	}
	return t.ID(), nil
}

// insert places t without checking ownership.
func (q *Queue) insert(t Task, front, force bool) {
	q.lock()
	defer q.unlock()
	if !force && q.tasks.Contains(t.ID()) {
		return
	}
	if front {
		q.tasks.PushFront(t)
	} else {
		q.tasks.PushBack(t)
	}
}

// Cancel removes the task with the given id if this queue holds it directly.
// Sub-steps nested inside a strand are not searched.
func (q *Queue) Cancel(id TaskID) bool {
	t, found := q.take(id)
	if !found {
		return false
	}
	if u, ok := t.(unscheduler); ok {
		u.unscheduled()
	}
	q.canceled.Add(1)
	q.metrics.RecordTaskCanceled(q.name)
	return true
}

// take removes the task with the given id and returns it.
func (q *Queue) take(id TaskID) (Task, bool) {
	q.lock()
	defer q.unlock()
	t, found := q.tasks.Find(id)
	if found {
		q.tasks.Remove(id)
	}
	return t, found
}

// unscheduler is told when its task was taken out of a queue without running.
type unscheduler interface {
	unscheduled()
}

// =============================================================================
// Draining
// =============================================================================

// RunN pops up to count tasks from the front and runs them in order. Counts below 1
// are treated as 1.
func (q *Queue) RunN(count int) {
	if count < 1 {
		count = 1
	}
	q.lock()
	batch := q.tasks.PopUpTo(count)
	q.unlock()

	for _, t := range batch {
		q.runTask(t)
	}
}

// Run drains the queue until it is empty. Each pass takes the whole current
// collection, so work enqueued during a pass runs in the next one; between passes
// that left work behind Run sleeps for pollInterval.
func (q *Queue) Run(pollInterval time.Duration) {
	for {
		q.lock()
		batch := q.tasks.Drain()
		q.unlock()

		for _, t := range batch {
			q.runTask(t)
		}

		depth := q.LocalSize()
		q.metrics.RecordQueueDepth(q.name, depth)
		if depth == 0 {
			return
		}
		if pollInterval > 0 {
			time.Sleep(pollInterval)
		}
	}
}

func (q *Queue) runTask(t Task) {
	var startedAt time.Time
	if q.observed {
		startedAt = time.Now()
	}

	if !q.execute(t) {
		q.observe(t, startedAt, RequeueNone, true)
		return
	}
	q.executed.Add(1)

	pos := t.Requeue()
	if pos != RequeueNone {
		if t.ActivateOnRequeue() {
			q.Activate()
		}
		q.insert(t, pos == RequeueFront, t.ForcePush())
		q.metrics.RecordRequeue(q.name, pos)
	}
	q.observe(t, startedAt, pos, false)
}

// execute runs t and reports whether it completed without a recovered panic.
func (q *Queue) execute(t Task) (ok bool) {
	if q.panicHandler != nil {
		defer func() {
			if rec := recover(); rec != nil {
				ok = false
				q.panicHandler.HandlePanic(q.name, t.ID(), rec, debug.Stack())
				q.metrics.RecordTaskPanic(q.name, rec)
				if q.onPanic != nil {
					q.onPanic(t.ID(), rec)
				}
			}
		}()
	}
	t.RunTask()
	return true
}

func (q *Queue) observe(t Task, startedAt time.Time, pos RequeuePos, panicked bool) {
	if !q.observed {
		return
	}
	finishedAt := time.Now()
	duration := finishedAt.Sub(startedAt)
	q.metrics.RecordTaskDuration(q.name, t.Kind(), duration)
	if q.history != nil {
		q.history.Add(TaskExecutionRecord{
			TaskID:     t.ID(),
			Kind:       t.Kind(),
			QueueName:  q.name,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Duration:   duration,
			Requeue:    pos,
			Panicked:   panicked,
		})
	}
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns a snapshot of the queue state.
func (q *Queue) Stats() QueueStats {
	q.lock()
	local := q.tasks.Len()
	size := q.tasks.SumSize()
	q.unlock()

	stats := QueueStats{
		Name:       q.name,
		Local:      local,
		Size:       size,
		Executed:   q.executed.Load(),
		Canceled:   q.canceled.Load(),
		ThreadSafe: q.threadSafe,
	}
	if last, ok := q.LastTask(); ok {
		stats.LastTaskID = last.TaskID
		stats.LastTaskAt = last.FinishedAt
	}
	return stats
}

// RecentTasks returns up to limit execution records, newest first. It is empty
// unless the queue was built WithHistory.
func (q *Queue) RecentTasks(limit int) []TaskExecutionRecord {
	if q.history == nil {
		return nil
	}
	return q.history.Recent(limit)
}

// LastTask returns the most recent execution record.
func (q *Queue) LastTask() (TaskExecutionRecord, bool) {
	if q.history == nil {
		return TaskExecutionRecord{}, false
	}
	return q.history.Last()
}
