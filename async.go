package eventqueue

import (
	"iter"

	"github.com/Swind/go-event-queue/core"
)

// The helpers below run on the process-wide default queue. The On variants target an
// explicit queue.

// NewStrand creates a strand parented to the default queue.
func NewStrand[T any](autoRequeue bool) *Strand[T] {
	return core.NewStrand[T](Default(), autoRequeue)
}

// Each visits items in order on the default queue.
func Each[T any](items []T, fn ItemStep[T], end Callback) {
	core.Each(Default(), items, fn, end)
}

// EachSeq visits the values of seq in order on the default queue.
func EachSeq[T any](seq iter.Seq[T], fn ItemStep[T], end Callback) {
	core.EachSeq(Default(), seq, fn, end)
}

// Series runs steps one after another on the default queue.
func Series(steps []SeriesStep, end Callback) {
	core.Series(Default(), steps, end)
}

// Waterfall threads a value through steps on the default queue.
func Waterfall[T any](steps []WaterfallStep[T], end ValueCallback[T]) {
	core.Waterfall(Default(), steps, end)
}

// Loop runs step while cond holds, checking cond first.
func Loop(cond Predicate, step SeriesStep, end Callback) {
	core.Loop(Default(), cond, step, end)
}

// LoopDo runs step, then keeps running it while cond holds.
func LoopDo(step SeriesStep, cond Predicate, end Callback) {
	core.LoopDo(Default(), step, cond, end)
}

// EachOn visits items in order on q.
func EachOn[T any](q *Queue, items []T, fn ItemStep[T], end Callback) {
	core.Each(q, items, fn, end)
}

// SeriesOn runs steps one after another on q.
func SeriesOn(q *Queue, steps []SeriesStep, end Callback) {
	core.Series(q, steps, end)
}

// WaterfallOn threads a value through steps on q.
func WaterfallOn[T any](q *Queue, steps []WaterfallStep[T], end ValueCallback[T]) {
	core.Waterfall(q, steps, end)
}

// LoopOn runs step on q while cond holds, checking cond first.
func LoopOn(q *Queue, cond Predicate, step SeriesStep, end Callback) {
	core.Loop(q, cond, step, end)
}

// LoopDoOn runs step on q, then keeps running it while cond holds.
func LoopDoOn(q *Queue, step SeriesStep, cond Predicate, end Callback) {
	core.LoopDo(q, step, cond, end)
}
