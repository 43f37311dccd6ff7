package eventqueue

import (
	"sync"

	"github.com/Swind/go-event-queue/core"
)

// =============================================================================
// Process-wide default queue (Singleton)
// =============================================================================

const defaultQueueName = "default"

var (
	defaultQueue *core.Queue
	defaultMu    sync.Mutex
)

// Default returns the process-wide queue, creating an unattached one on first use.
//
// Callers own its lifetime: call ResetDefault before use and DestroyDefault at
// teardown. Tasks held by a destroyed default queue are dropped with it.
func Default() *core.Queue {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultQueue == nil {
		defaultQueue = core.NewQueue(core.WithName(defaultQueueName))
	}
	return defaultQueue
}

// ResetDefault replaces the default queue with a fresh one bound to w. A nil w
// leaves the new queue to be driven by polling.
func ResetDefault(w core.Waker, opts ...core.Option) *core.Queue {
	opts = append([]core.Option{core.WithName(defaultQueueName), core.WithWaker(w)}, opts...)
	q := core.NewQueue(opts...)

	defaultMu.Lock()
	defaultQueue = q
	defaultMu.Unlock()
	return q
}

// DestroyDefault drops the default queue.
func DestroyDefault() {
	defaultMu.Lock()
	defaultQueue = nil
	defaultMu.Unlock()
}
