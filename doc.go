// Package eventqueue provides a cooperative, callback-based task scheduler.
//
// Work is posted as closures onto a Queue. The queue never starts goroutines of its own:
// whoever drains it (Run, RunN, or a DrainPool) runs the tasks, and an optional Waker
// tells an embedding event loop that work arrived.
//
// # Quick Start
//
// Drive a queue from the current goroutine:
//
//	q := eventqueue.NewQueue(eventqueue.WithoutLocking())
//	q.PushBack(func() { fmt.Println("hello") })
//	q.Run(0)
//
// Or let worker goroutines drain it:
//
//	pool := eventqueue.NewDrainPool("workers", 4)
//	pool.Start(ctx)
//	defer pool.Stop()
//	pool.Queue().PushBack(func() { ... })
//
// # Key Concepts
//
// Strand: a task that is itself a queue of sub-steps. Each parent turn runs one
// sub-step, so the sub-steps of a strand never overlap and keep FIFO order while other
// work on the parent interleaves. A strand carries a payload shared by its sub-steps.
//
// Combinators: Series, Each, Waterfall, Loop and LoopDo build on a strand. Every step
// receives a continuation that must be called exactly once, from any goroutine; the
// first error skips the remaining steps and goes to the end callback. Calling a
// continuation twice is a programming error that is logged at fatal level and
// terminates the process.
//
// Default queue: Default, ResetDefault and DestroyDefault manage a process-wide queue
// used by the package-level helpers. The On variants take an explicit queue.
//
// # Thread Safety
//
// Queues lock their collection by default and never hold the lock while a task runs.
// WithoutLocking selects the single-goroutine mode. A DrainPool always uses a locked
// queue; its workers add parallelism across tasks only, never within a strand.
//
// # Example
//
//	q := eventqueue.ResetDefault(nil)
//	defer eventqueue.DestroyDefault()
//
//	eventqueue.Series([]eventqueue.SeriesStep{
//		func(done eventqueue.Callback) { done(nil) },
//		func(done eventqueue.Callback) { done(errors.New("failed")) },
//	}, func(err error) {
//		fmt.Println("end:", err)
//	})
//	q.Run(0)
package eventqueue
