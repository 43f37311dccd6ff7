package core

import (
	"iter"
	"slices"
)

// ItemStep processes one item of Each and reports through done.
type ItemStep[T any] func(item T, done Callback)

// SeriesStep is one asynchronous action of Series or Loop.
type SeriesStep func(done Callback)

// WaterfallStep receives the current value and reports the next one through done.
type WaterfallStep[T any] func(value T, done ValueCallback[T])

// Predicate decides whether a loop keeps going.
type Predicate func() bool

// Each visits items strictly in order, one item per strand turn, then calls end with
// the first error reported (or nil). After an error the remaining items are skipped.
//
// Each is sequential: concurrency only comes from fn not blocking the queue while its
// own asynchronous work is in flight.
func Each[T any](q *Queue, items []T, fn ItemStep[T], end Callback) {
	if !requireQueue(q, "each") {
		return
	}
	end = orDefaultEnd(q, "each", end)

	s := NewStrand[error](q, false)
	guard := newStepGuard(q.Logger(), s.ID())
	s.onStepPanic(func(rec any) { guard.recovered(rec, advance(s)) })
	for _, item := range items {
		s.PushBack(func() {
			if s.Data() != nil {
				s.RequeueSelfBack()
				return
			}
			fn(item, guard.next().callback(advance(s)))
		})
	}
	s.PushBack(func() {
		end(s.Data())
	})
	s.RequeueSelfBack()
}

// EachSeq is Each over an iterator. The sequence is fully collected up front.
func EachSeq[T any](q *Queue, seq iter.Seq[T], fn ItemStep[T], end Callback) {
	Each(q, slices.Collect(seq), fn, end)
}

// Series runs steps one after another and calls end with the first error, skipping
// the remaining steps. An empty list completes on the next queue turn.
//
//	core.Series(q, []core.SeriesStep{
//		func(done core.Callback) { done(nil) },
//		func(done core.Callback) { done(nil) },
//	}, func(err error) {
//		// all steps done, or the first one that failed
//	})
func Series(q *Queue, steps []SeriesStep, end Callback) {
	if !requireQueue(q, "series") {
		return
	}
	end = orDefaultEnd(q, "series", end)

	if len(steps) == 0 {
		q.PushBack(func() { end(nil) })
		return
	}

	s := NewStrand[error](q, false)
	guard := newStepGuard(q.Logger(), s.ID())
	s.onStepPanic(func(rec any) { guard.recovered(rec, advance(s)) })
	for _, step := range steps {
		s.PushBack(func() {
			if s.Data() != nil {
				s.RequeueSelfBack()
				return
			}
			step(guard.next().callback(advance(s)))
		})
	}
	s.PushBack(func() {
		end(s.Data())
	})
	s.RequeueSelfBack()
}

// advance is the continuation body shared by Each and Series: record the error and
// jump to the end step, or yield and resume with the next step.
func advance(s *Strand[error]) Callback {
	return func(err error) {
		if err != nil {
			s.SetData(err)
			s.RequeueSelfLastFront()
			return
		}
		s.RequeueSelfBack()
	}
}

type waterfallState[T any] struct {
	value T
	err   error
}

// Waterfall threads a value through steps. Each step receives the current value and
// reports an error or the next value; end receives the first error or the final
// value. An empty list delivers the zero value on the next queue turn.
func Waterfall[T any](q *Queue, steps []WaterfallStep[T], end ValueCallback[T]) {
	if !requireQueue(q, "waterfall") {
		return
	}
	if end == nil {
		onErr := orDefaultEnd(q, "waterfall", nil)
		end = func(err error, _ T) { onErr(err) }
	}

	if len(steps) == 0 {
		var zero T
		q.PushBack(func() { end(nil, zero) })
		return
	}

	s := NewStrand[*waterfallState[T]](q, false)
	st := &waterfallState[T]{}
	s.SetData(st)
	fail := func(err error) {
		st.err = err
		s.RequeueSelfLastFront()
	}
	guard := newStepGuard(q.Logger(), s.ID())
	s.onStepPanic(func(rec any) { guard.recovered(rec, fail) })
	for _, step := range steps {
		s.PushBack(func() {
			if st.err != nil {
				s.RequeueSelfBack()
				return
			}
			step(st.value, guardedValue(guard.next(), func(err error, next T) {
				if err != nil {
					fail(err)
					return
				}
				st.value = next
				s.RequeueSelfBack()
			}))
		})
	}
	s.PushBack(func() {
		end(st.err, st.value)
	})
	s.RequeueSelfBack()
}

// Loop evaluates cond before every iteration and runs step while it holds. A step
// error stops the loop immediately and is passed to end; a false cond ends it with
// nil. A nil cond loops until a step fails.
func Loop(q *Queue, cond Predicate, step SeriesStep, end Callback) {
	if !requireQueue(q, "loop") {
		return
	}
	l := newLoop(q, orAlways(cond), step, orDefaultEnd(q, "loop", end))
	l.condFirst()
}

// LoopDo runs step first and evaluates cond only after a successful iteration, so
// step runs at least once.
func LoopDo(q *Queue, step SeriesStep, cond Predicate, end Callback) {
	if !requireQueue(q, "loop") {
		return
	}
	l := newLoop(q, orAlways(cond), step, orDefaultEnd(q, "loop", end))
	l.stepFirst()
}

// loop is the state of one Loop or LoopDo run. Every iteration is a fresh sub-step
// of the strand.
type loop struct {
	s     *Strand[error]
	guard *stepGuard
	cond  Predicate
	step  SeriesStep
	end   Callback
}

func newLoop(q *Queue, cond Predicate, step SeriesStep, end Callback) *loop {
	s := NewStrand[error](q, false)
	l := &loop{s: s, guard: newStepGuard(q.Logger(), s.ID()), cond: cond, step: step, end: end}
	s.onStepPanic(func(rec any) { l.guard.recovered(rec, l.finish) })
	return l
}

func (l *loop) condFirst() {
	l.s.PushBack(func() {
		g := l.guard.next()
		if !l.cond() {
			g.claim()
			l.finish(nil)
			return
		}
		l.step(g.callback(func(err error) {
			if err != nil {
				l.finish(err)
				return
			}
			l.condFirst()
		}))
	})
	l.s.RequeueSelfBack()
}

func (l *loop) stepFirst() {
	l.s.PushBack(func() {
		l.step(l.guard.next().callback(func(err error) {
			if err != nil {
				l.finish(err)
				return
			}
			if !l.cond() {
				l.finish(nil)
				return
			}
			l.stepFirst()
		}))
	})
	l.s.RequeueSelfBack()
}

// finish makes the end callback the only pending step and runs it next.
func (l *loop) finish(err error) {
	l.s.SetData(err)
	l.s.PushBack(func() {
		l.end(l.s.Data())
	})
	l.s.RequeueSelfLastFront()
}

func orAlways(cond Predicate) Predicate {
	if cond == nil {
		return func() bool { return true }
	}
	return cond
}

// orDefaultEnd substitutes an end callback that logs errors nobody handles.
func orDefaultEnd(q *Queue, combinator string, end Callback) Callback {
	if end != nil {
		return end
	}
	return func(err error) {
		if err == nil {
			return
		}
		fields := []Field{F("queue", q.name), F("combinator", combinator), F("error", err)}
		if se, ok := Origin(err); ok {
			fields = append(fields, F("origin", se.Location()))
		}
		q.Logger().Error("uncaught step error", fields...)
	}
}

func requireQueue(q *Queue, combinator string) bool {
	if q == nil {
		contractViolation(nil, combinator+": queue can't be nil")
		return false
	}
	return true
}
