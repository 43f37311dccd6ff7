package core

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type strandState uint8

const (
	strandIdle    strandState = iota // neither held by the parent nor running
	strandQueued                     // held by the parent
	strandRunning                    // a sub-step is executing
)

// Strand is a task that is itself a queue of sub-steps. To its parent it is a single
// task whose every turn runs exactly one pending sub-step, so the sub-steps of one
// strand never run concurrently and always run in FIFO order.
//
// With auto-requeue the strand resubmits itself to its parent as long as sub-steps
// remain. Without it, the strand only moves when a sub-step calls one of the
// RequeueSelf methods; the combinators use this mode.
//
// The payload slot of type T is shared by the sub-steps. It needs no lock because the
// sub-steps run one at a time and every handoff goes through the parent's queue.
type Strand[T any] struct {
	taskBase

	steps             *Queue
	autoRequeue       bool
	activateOnRequeue atomic.Bool
	data              T

	// stateMu orders scheduling requests against runs. While a sub-step runs,
	// requests are folded into deferred and applied by Requeue.
	stateMu  sync.Mutex
	state    strandState
	deferred RequeuePos
}

// NewStrand creates a strand parented to q. Sub-steps pushed on the strand run on
// whichever goroutine drains q.
func NewStrand[T any](q *Queue, autoRequeue bool) *Strand[T] {
	if q == nil {
		contractViolation(nil, "strand owner can't be nil")
		return nil
	}

	s := &Strand[T]{autoRequeue: autoRequeue}
	s.init(q)
	s.steps = NewQueueWithConfig(&QueueConfig{
		Name:           q.name + "/" + s.id.String(),
		Logger:         q.logger,
		PanicHandler:   q.panicHandler,
		Metrics:        stepMetrics(q),
		Unsynchronized: !q.threadSafe,
	})
	s.activateOnRequeue.Store(true)

	// Steps still pending when the strand becomes unreachable move to the parent.
	runtime.AddCleanup(s, func(r strandRemains) {
		migrateSteps(r.steps, r.owner.Load())
	}, strandRemains{steps: s.steps, owner: s.owner})

	return s
}

type strandRemains struct {
	steps *Queue
	owner *atomic.Pointer[Queue]
}

// migrateSteps moves every pending step of steps to the back of owner.
func migrateSteps(steps *Queue, owner *Queue) int {
	if owner == nil {
		return 0
	}
	steps.lock()
	pending := steps.tasks.Drain()
	steps.unlock()

	for _, t := range pending {
		t.setOwner(owner)
		owner.insert(t, false, true)
	}
	if len(pending) > 0 {
		owner.Activate()
	}
	return len(pending)
}

// stepPanicMetrics counts sub-step panics under the parent's name and drops the
// per-step timings, which would otherwise get a label per strand.
type stepPanicMetrics struct {
	NilMetrics
	parent  string
	metrics Metrics
}

func stepMetrics(parent *Queue) Metrics {
	if _, ok := parent.metrics.(*NilMetrics); ok {
		return nil
	}
	return &stepPanicMetrics{parent: parent.name, metrics: parent.metrics}
}

func (m *stepPanicMetrics) RecordTaskPanic(_ string, panicInfo any) {
	m.metrics.RecordTaskPanic(m.parent, panicInfo)
}

func (s *Strand[T]) Kind() TaskKind { return TaskKindStrand }

// RunTask runs one pending sub-step. With a PanicHandler on the parent, a panicking
// sub-step is recovered here and the strand keeps its remaining steps.
func (s *Strand[T]) RunTask() {
	s.stateMu.Lock()
	s.state = strandRunning
	s.deferred = RequeueNone
	s.stateMu.Unlock()

	completed := false
	defer func() {
		if !completed {
			// The panic unwinds past the parent; nothing will call Requeue.
			s.stateMu.Lock()
			s.state = strandIdle
			s.stateMu.Unlock()
		}
	}()
	s.steps.RunN(1)
	completed = true
}

// Requeue is asked by the parent right after RunTask. It applies the scheduling
// requests made while the sub-step ran, and keeps an auto-requeue strand going while
// it still has sub-steps.
func (s *Strand[T]) Requeue() RequeuePos {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	pos := s.deferred
	s.deferred = RequeueNone
	if pos == RequeueNone && s.autoRequeue && s.steps.LocalSize() > 0 {
		pos = RequeueBack
	}
	if s.state == strandRunning {
		if pos == RequeueNone {
			s.state = strandIdle
		} else {
			s.state = strandQueued
		}
	}
	return pos
}

// Size is the number of pending sub-steps.
func (s *Strand[T]) Size() int {
	return s.steps.LocalSize()
}

// ForcePush is set for manual strands. The strand's scheduling state already keeps
// it from being inserted twice, so the duplicate scan is skipped.
func (s *Strand[T]) ForcePush() bool {
	return !s.autoRequeue
}

func (s *Strand[T]) ActivateOnRequeue() bool {
	return s.activateOnRequeue.Load()
}

// SetActivateOnRequeue controls whether requeuing the strand signals the parent's waker.
func (s *Strand[T]) SetActivateOnRequeue(activate bool) {
	s.activateOnRequeue.Store(activate)
}

// AutoRequeue reports the requeue policy chosen at creation.
func (s *Strand[T]) AutoRequeue() bool { return s.autoRequeue }

// Activate signals the parent's waker.
func (s *Strand[T]) Activate() {
	if owner := s.Owner(); owner != nil {
		owner.Activate()
	}
}

// Data returns the payload.
func (s *Strand[T]) Data() T { return s.data }

// SetData replaces the payload.
func (s *Strand[T]) SetData(v T) { s.data = v }

// PushBack appends a sub-step. An auto-requeue strand also schedules itself on its parent.
func (s *Strand[T]) PushBack(fn func()) TaskID {
	id := s.steps.PushBack(fn)
	if s.autoRequeue && id != NoTaskID {
		s.requeue(false)
	}
	return id
}

// PushFront prepends a sub-step. An auto-requeue strand also schedules itself on its
// parent, at the back.
func (s *Strand[T]) PushFront(fn func()) TaskID {
	id := s.steps.PushFront(fn)
	if s.autoRequeue && id != NoTaskID {
		s.requeue(false)
	}
	return id
}

// Cancel removes a pending sub-step.
func (s *Strand[T]) Cancel(id TaskID) bool {
	return s.steps.Cancel(id)
}

// RequeueSelfBack schedules the strand at the back of its parent.
func (s *Strand[T]) RequeueSelfBack() {
	s.requeue(false)
}

// RequeueSelfFront schedules the strand at the front of its parent.
func (s *Strand[T]) RequeueSelfFront() {
	s.requeue(true)
}

// RequeueSelfLastFront discards every pending sub-step except the final one and
// schedules the strand at the front of its parent, so the final step runs ahead of
// unrelated parent work.
func (s *Strand[T]) RequeueSelfLastFront() {
	s.steps.lock()
	s.steps.tasks.KeepLast()
	s.steps.unlock()
	s.requeue(true)
}

// Release moves every pending sub-step to the parent queue and returns how many were
// moved. The strand stays usable but empty.
//
// Pending steps are also migrated when the strand is garbage collected, but only if
// no step refers back to the strand. Steps that capture it, as every combinator step
// does, keep it reachable forever; a strand whose steps may never be resumed must be
// released explicitly.
func (s *Strand[T]) Release() int {
	return migrateSteps(s.steps, s.Owner())
}

func (s *Strand[T]) unscheduled() {
	s.stateMu.Lock()
	if s.state == strandQueued {
		s.state = strandIdle
	}
	s.stateMu.Unlock()
}

// onStepPanic registers fn for sub-step panics recovered by the parent's
// PanicHandler. fn runs on the draining goroutine before the strand is requeued.
func (s *Strand[T]) onStepPanic(fn func(rec any)) {
	s.steps.onPanic = func(_ TaskID, rec any) { fn(rec) }
}

// requeue schedules the strand on its parent. It is inserted at most once: a strand
// already held is left where it is, and a request made while a sub-step runs is
// deferred to Requeue, so a second drainer can never pick the strand up mid-step.
func (s *Strand[T]) requeue(front bool) {
	owner := s.Owner()
	if owner == nil {
		return
	}

	s.stateMu.Lock()
	switch s.state {
	case strandRunning:
		if front || s.deferred == RequeueNone {
			s.deferred = requeuePos(front)
		}
		s.stateMu.Unlock()
		return
	case strandQueued:
		s.stateMu.Unlock()
		return
	}
	s.state = strandQueued
	s.stateMu.Unlock()

	var err error
	if front {
		_, err = owner.PushTaskFront(s)
	} else {
		_, err = owner.PushTaskBack(s)
	}
	if err != nil {
		s.stateMu.Lock()
		if s.state == strandQueued {
			s.state = strandIdle
		}
		s.stateMu.Unlock()
		owner.Logger().Error("strand requeue failed",
			F("strand", s.id.String()),
			F("queue", owner.name),
			F("error", err),
		)
	}
}

func requeuePos(front bool) RequeuePos {
	if front {
		return RequeueFront
	}
	return RequeueBack
}
