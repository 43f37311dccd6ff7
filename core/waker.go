package core

// Waker is the external readiness signal a queue pokes when it receives work.
// Activate must be safe to call from any goroutine at any time.
type Waker interface {
	Activate()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

func (f WakerFunc) Activate() {
	if f != nil {
		f()
	}
}

// ChanWaker delivers activations on a buffered channel, coalescing the ones that
// arrive while the buffer is full.
type ChanWaker struct {
	ch chan struct{}
}

func NewChanWaker() *ChanWaker {
	return NewBufferedChanWaker(1)
}

// NewBufferedChanWaker keeps up to size pending activations, so several waiting
// drainers can be woken by a burst of work.
func NewBufferedChanWaker(size int) *ChanWaker {
	if size < 1 {
		size = 1
	}
	return &ChanWaker{ch: make(chan struct{}, size)}
}

// Activate never blocks. It is a no-op on a nil waker.
func (w *ChanWaker) Activate() {
	if w == nil {
		return
	}
	select {
	case w.ch <- struct{}{}:
	default:
		// Signals are pending, a drainer will see the new work
	}
}

// C returns the channel receiving activations.
func (w *ChanWaker) C() <-chan struct{} {
	return w.ch
}
