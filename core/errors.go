package core

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// ErrNilOwner is returned when an ownership transfer names a nil queue.
	ErrNilOwner = errors.New("owner can't be nil")

	// ErrNilTask is returned when a nil task is pushed or transferred.
	ErrNilTask = errors.New("task can't be nil")

	// ErrForeignTask is returned when a task is pushed onto a queue that does not own it.
	// Use SwitchOwner to move a task between queues.
	ErrForeignTask = errors.New("can't requeue a task created on another queue")

	// ErrStepPanicked is delivered to a combinator's end callback when one of its
	// steps panicked and the queue's PanicHandler recovered it.
	ErrStepPanicked = errors.New("step panicked")
)

// StackError wraps an error with the location it was raised from.
type StackError struct {
	Err   error
	File  string
	Line  int
	Func  string
	Stack string
}

func (e *StackError) Error() string {
	if e.Err == nil {
		return "no error assigned"
	}
	return e.Err.Error()
}

func (e *StackError) Unwrap() error { return e.Err }

// Location renders "file:line func" for diagnostics.
func (e *StackError) Location() string {
	return fmt.Sprintf("%s:%d %s", e.File, e.Line, e.Func)
}

// WrapError attaches origin metadata of the caller to err. A nil err stays nil, and an
// err that already carries origin metadata is returned unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var se *StackError
	if errors.As(err, &se) {
		return err
	}
	return newStackError(err, 2)
}

// Errorf formats an error and records the caller as its origin.
func Errorf(format string, args ...any) error {
	return newStackError(fmt.Errorf(format, args...), 2)
}

// Origin returns the origin metadata attached to err, if any.
func Origin(err error) (*StackError, bool) {
	var se *StackError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasError reports whether err carries an error.
func HasError(err error) bool {
	return err != nil
}

func newStackError(err error, skip int) *StackError {
	se := &StackError{Err: err, Stack: string(debug.Stack())}
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return se
	}
	se.File = file
	se.Line = line
	if fn := runtime.FuncForPC(pc); fn != nil {
		se.Func = fn.Name()
	}
	return se
}
