package eventqueue

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Swind/go-event-queue/core"
)

const (
	defaultPollInterval  = 50 * time.Millisecond
	adaptiveBatchDivisor = 100
)

// DrainPool runs a set of worker goroutines that compete to drain one thread-safe
// queue. Workers sleep on the queue's waker and, once woken, call RunN until the queue
// is empty. It adds parallelism across tasks only; every strand still runs one
// sub-step at a time.
type DrainPool struct {
	id           string
	workers      int
	batch        int
	pollInterval time.Duration

	queue *core.Queue
	waker *core.ChanWaker

	active atomic.Int32
	passes atomic.Int64

	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex
}

// DrainPoolConfig holds the worker settings of a DrainPool.
type DrainPoolConfig struct {
	// Workers is the number of draining goroutines. Defaults to 1.
	Workers int

	// BatchSize is the RunN count per pass. Zero selects an adaptive size derived
	// from the backlog and the worker count.
	BatchSize int

	// PollInterval bounds how long a worker sleeps without a wake signal.
	PollInterval time.Duration
}

// NewDrainPool creates a pool and the queue it drains. opts configure the queue; the
// pool installs its own waker and a logging panic handler unless opts override it.
func NewDrainPool(id string, workers int, opts ...core.Option) *DrainPool {
	return NewDrainPoolWithConfig(id, DrainPoolConfig{Workers: workers}, opts...)
}

// NewDrainPoolWithConfig is NewDrainPool with explicit worker settings.
func NewDrainPoolWithConfig(id string, cfg DrainPoolConfig, opts ...core.Option) *DrainPool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	p := &DrainPool{
		id:           id,
		workers:      cfg.Workers,
		batch:        cfg.BatchSize,
		pollInterval: cfg.PollInterval,
		waker:        core.NewBufferedChanWaker(cfg.Workers * 2),
	}

	queueOpts := []core.Option{
		core.WithName(id),
		core.WithPanicHandler(&core.DefaultPanicHandler{}),
	}
	queueOpts = append(queueOpts, opts...)
	// The pool only works with a locked queue woken by its own waker.
	queueOpts = append(queueOpts, core.WithWaker(p.waker), func(c *core.QueueConfig) {
		c.Unsynchronized = false
	})
	p.queue = core.NewQueue(queueOpts...)
	return p
}

// Queue returns the queue drained by the pool.
func (p *DrainPool) Queue() *core.Queue {
	return p.queue
}

// Start starts all worker goroutines
func (p *DrainPool) Start(ctx context.Context) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return // Already running
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(p.ctx)
	}
	// Pick up work queued before Start
	p.waker.Activate()
}

// Stop cancels the workers and waits for them. Tasks still queued stay in the queue.
func (p *DrainPool) Stop() {
	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		return
	}
	cancel := p.cancel
	p.runningMu.Unlock()

	cancel()
	p.Join()

	p.runningMu.Lock()
	p.running = false
	p.runningMu.Unlock()
}

// Join waits for all worker goroutines to finish
func (p *DrainPool) Join() {
	p.wg.Wait()
}

// ID returns the ID of the pool
func (p *DrainPool) ID() string {
	return p.id
}

// IsRunning returns whether the pool is running
func (p *DrainPool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// WorkerCount returns the number of workers
func (p *DrainPool) WorkerCount() int {
	return p.workers
}

// ActiveWorkerCount returns the number of workers inside RunN right now.
func (p *DrainPool) ActiveWorkerCount() int {
	return int(p.active.Load())
}

// Stats returns a snapshot of the pool state.
func (p *DrainPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:      p.id,
		Workers: p.workers,
		Active:  p.ActiveWorkerCount(),
		Passes:  p.passes.Load(),
		Running: p.IsRunning(),
	}
}

// WaitIdle blocks until the queue holds no work and no worker is running a task.
// Steps whose continuation is still pending outside the queue are not waited for.
func (p *DrainPool) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		if p.queue.Size() == 0 && p.active.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// workerLoop is the main loop for each worker
func (p *DrainPool) workerLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.waker.C():
		case <-ticker.C:
		}

		for {
			if ctx.Err() != nil {
				return
			}
			local := p.queue.LocalSize()
			if local == 0 {
				break
			}
			p.active.Add(1)
			p.queue.RunN(p.batchFor(local))
			p.active.Add(-1)
			p.passes.Add(1)
		}
	}
}

// batchFor spreads the backlog across workers in small slices so that no worker
// hoards the queue.
func (p *DrainPool) batchFor(backlog int) int {
	if p.batch > 0 {
		return p.batch
	}
	n := int(math.Ceil(float64(backlog) / float64(p.workers) / adaptiveBatchDivisor))
	return max(n, 1)
}
