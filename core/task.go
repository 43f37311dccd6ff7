package core

import (
	"strconv"
	"sync/atomic"
)

// =============================================================================
// TaskID: process-wide task identity
// =============================================================================

// TaskID identifies a task across every queue and strand in the process.
type TaskID uint64

// NoTaskID is never issued by NextTaskID.
const NoTaskID TaskID = 0

// firstTaskID seeds the counter well above NoTaskID.
const firstTaskID = 10

var lastTaskID atomic.Uint64

func init() {
	lastTaskID.Store(firstTaskID)
}

// NextTaskID returns a new, monotonically increasing task identity.
func NextTaskID() TaskID {
	return TaskID(lastTaskID.Add(1))
}

// IsZero reports whether id is the NoTaskID sentinel.
func (id TaskID) IsZero() bool {
	return id == NoTaskID
}

func (id TaskID) String() string {
	return "task-" + strconv.FormatUint(uint64(id), 10)
}

// =============================================================================
// RequeuePos: post-run directive
// =============================================================================

// RequeuePos tells a task's owner whether and where to reinsert it after it ran.
type RequeuePos int

const (
	RequeueNone RequeuePos = iota
	RequeueBack
	RequeueFront
)

func (p RequeuePos) String() string {
	switch p {
	case RequeueNone:
		return "none"
	case RequeueBack:
		return "back"
	case RequeueFront:
		return "front"
	default:
		return "unknown"
	}
}

// TaskKind distinguishes task variants in metrics and history.
type TaskKind string

const (
	TaskKindPlain  TaskKind = "plain"
	TaskKindStrand TaskKind = "strand"
)

// =============================================================================
// Task: schedulable unit
// =============================================================================

// Task is a schedulable unit held by exactly one Queue at a time.
//
// The set of implementations is closed: plain tasks created by Queue.PushBack and
// PushFront, and strands created by NewStrand.
type Task interface {
	ID() TaskID
	Owner() *Queue
	Kind() TaskKind

	// RunTask executes the task body once.
	RunTask()
	// Requeue is consulted by the owner right after RunTask.
	Requeue() RequeuePos
	// Size is the backlog cost of the task: 1 for a plain task, the number of
	// pending sub-steps for a strand.
	Size() int
	// ForcePush skips the duplicate scan when an existing task is reinserted.
	ForcePush() bool
	// ActivateOnRequeue makes reinsertion signal the owner's waker.
	ActivateOnRequeue() bool

	setOwner(q *Queue)
}

// taskBase carries the identity and owner shared by every Task variant.
type taskBase struct {
	id TaskID
	// owner lives in its own allocation so cleanups can reach it without
	// keeping the task itself alive.
	owner *atomic.Pointer[Queue]
}

func (b *taskBase) init(owner *Queue) {
	if owner == nil {
		contractViolation(nil, "task owner can't be nil")
		return
	}
	b.id = NextTaskID()
	b.owner = new(atomic.Pointer[Queue])
	b.owner.Store(owner)
}

func (b *taskBase) ID() TaskID        { return b.id }
func (b *taskBase) setOwner(q *Queue) { b.owner.Store(q) }

func (b *taskBase) Owner() *Queue {
	if b.owner == nil {
		return nil
	}
	return b.owner.Load()
}

// plainTask wraps a closure pushed onto a queue.
type plainTask struct {
	taskBase
	fn func()
}

func newPlainTask(owner *Queue, fn func()) *plainTask {
	t := &plainTask{fn: fn}
	t.init(owner)
	return t
}

func (t *plainTask) Kind() TaskKind          { return TaskKindPlain }
func (t *plainTask) RunTask()                { t.fn() }
func (t *plainTask) Requeue() RequeuePos     { return RequeueNone }
func (t *plainTask) Size() int               { return 1 }
func (t *plainTask) ForcePush() bool         { return false }
func (t *plainTask) ActivateOnRequeue() bool { return true }

// SwitchOwner transfers t to newOwner.
//
// Without requeue only the owner reference changes; the caller is responsible for the
// task's placement. With requeue the task is removed from its current owner's
// collection and, if it was held there, appended to newOwner.
func SwitchOwner(t Task, newOwner *Queue, requeue bool) error {
	if t == nil {
		return ErrNilTask
	}
	oldOwner := t.Owner()
	if oldOwner == nil || newOwner == nil {
		return ErrNilOwner
	}

	if !requeue {
		t.setOwner(newOwner)
		return nil
	}

	_, found := oldOwner.take(t.ID())
	t.setOwner(newOwner)
	if found {
		newOwner.insert(t, false, true)
	}
	return nil
}
