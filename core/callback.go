package core

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"
)

// Callback is the continuation handed to a step. It must be invoked exactly once;
// a nil error means success.
type Callback func(err error)

// ValueCallback is the continuation of a waterfall step.
type ValueCallback[T any] func(err error, value T)

// terminate ends the process after a contract violation was logged.
var terminate = func() { os.Exit(2) }

// contractViolation reports a programming error at fatal level and terminates.
// Scheduling state is never touched after it returns.
func contractViolation(l Logger, msg string, fields ...Field) {
	if l == nil {
		l = DefaultLog()
	}
	fields = append(fields, F("stack", string(debug.Stack())))
	l.Fatal(msg, fields...)
	_ = l.Flush()
	terminate()
}

// onceGuard enforces single invocation of a continuation.
type onceGuard struct {
	called atomic.Bool
	logger Logger
	owner  TaskID
}

func newOnceGuard(l Logger, owner TaskID) *onceGuard {
	return &onceGuard{logger: l, owner: owner}
}

// consume reports whether this is the first invocation. A repeated invocation is a
// contract violation.
func (g *onceGuard) consume() bool {
	if g.claim() {
		return true
	}
	contractViolation(g.logger, "callback already called once", F("strand", g.owner.String()))
	return false
}

// claim takes the invocation without complaining if it is already gone.
func (g *onceGuard) claim() bool {
	return g.called.CompareAndSwap(false, true)
}

func (g *onceGuard) callback(fn Callback) Callback {
	return func(err error) {
		if !g.consume() {
			return
		}
		fn(err)
	}
}

func guardedValue[T any](g *onceGuard, fn ValueCallback[T]) ValueCallback[T] {
	return func(err error, value T) {
		if !g.consume() {
			return
		}
		fn(err, value)
	}
}

// stepGuard hands out the continuation of the step a combinator strand is running.
// When that step panics and the panic is recovered, the pending continuation is
// completed with ErrStepPanicked instead, unless the step already called it.
type stepGuard struct {
	logger  Logger
	owner   TaskID
	current *onceGuard
}

func newStepGuard(l Logger, owner TaskID) *stepGuard {
	return &stepGuard{logger: l, owner: owner}
}

// next arms a fresh guard for the step about to run.
func (g *stepGuard) next() *onceGuard {
	g.current = newOnceGuard(g.logger, g.owner)
	return g.current
}

// recovered completes the running step's continuation through fail.
func (g *stepGuard) recovered(rec any, fail func(error)) {
	if g.current == nil || !g.current.claim() {
		return
	}
	fail(stepPanicError(rec))
}

func stepPanicError(rec any) error {
	return newStackError(fmt.Errorf("%w: %v", ErrStepPanicked, rec), 2)
}
