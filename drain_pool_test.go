package eventqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-event-queue/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainPool_Lifecycle(t *testing.T) {
	pool := NewDrainPool("test-pool", 2)

	assert.Equal(t, "test-pool", pool.ID())
	assert.False(t, pool.IsRunning())
	assert.Equal(t, "test-pool", pool.Queue().Name())
	assert.True(t, pool.Queue().IsThreadSafe())

	pool.Start(context.Background())
	assert.True(t, pool.IsRunning())
	assert.Equal(t, 2, pool.WorkerCount())

	pool.Stop()
	assert.False(t, pool.IsRunning())
	pool.Stop()
}

// TestDrainPool_AllTasksRunOnce verifies multi-producer, multi-consumer draining
// Given: A 4-worker pool and 8 producers pushing 250 tasks each
// When: The pool goes idle
// Then: Every task ran exactly once and the backlog is zero
func TestDrainPool_AllTasksRunOnce(t *testing.T) {
	// Arrange
	const producers, perProducer = 8, 250
	pool := NewDrainPool("exec-pool", 4)
	pool.Start(context.Background())
	defer pool.Stop()

	var counts [producers * perProducer]atomic.Int32
	var wg sync.WaitGroup

	// Act
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				idx := p*perProducer + i
				pool.Queue().PushBack(func() { counts[idx].Add(1) })
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.WaitIdle(ctx))

	// Assert
	for i := range counts {
		require.Equal(t, int32(1), counts[i].Load(), "task %d", i)
	}
	assert.Equal(t, 0, pool.Queue().Size())
	assert.Equal(t, int64(producers*perProducer), pool.Queue().Stats().Executed)
}

// TestDrainPool_MultiThreadSeries verifies series pipelines on a shared pool
// Given: 100 series of three increments each, started from 4 goroutines on an 8-worker pool
// When: Every series has called its end callback
// Then: The counter is 300 and the queue backlog is empty
func TestDrainPool_MultiThreadSeries(t *testing.T) {
	// Arrange
	const starters, perStarter = 4, 25
	pool := NewDrainPool("series-pool", 8)
	pool.Start(context.Background())
	defer pool.Stop()

	var counter atomic.Int64
	var ends sync.WaitGroup
	inc := func(done Callback) {
		counter.Add(1)
		done(nil)
	}

	// Act
	ends.Add(starters * perStarter)
	var started sync.WaitGroup
	for range starters {
		started.Add(1)
		go func() {
			defer started.Done()
			for range perStarter {
				core.Series(pool.Queue(), []SeriesStep{inc, inc, inc}, func(err error) {
					assert.NoError(t, err)
					ends.Done()
				})
			}
		}()
	}
	started.Wait()
	waitGroupWithTimeout(t, &ends, 5*time.Second)

	// Assert
	assert.Equal(t, int64(starters*perStarter*3), counter.Load())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.WaitIdle(ctx))
	assert.Equal(t, 0, pool.Queue().Size())
}

// TestDrainPool_PanicIsRecovered verifies the default pool handler keeps workers alive
func TestDrainPool_PanicIsRecovered(t *testing.T) {
	pool := NewDrainPool("panic-pool", 1, WithLogger(core.NewNoOpLogger()),
		WithPanicHandler(&core.DefaultPanicHandler{Logger: core.NewNoOpLogger()}))
	pool.Start(context.Background())
	defer pool.Stop()

	var after atomic.Bool
	pool.Queue().PushBack(func() { panic("worker panic") })
	pool.Queue().PushBack(func() { after.Store(true) })

	require.Eventually(t, after.Load, 5*time.Second, time.Millisecond)
}

// TestDrainPool_PanickingStepStillEndsSeries verifies pipelines survive a recovered panic
// Given: A running pool with its default panic handler
// When: A series whose first step panics is scheduled on the pool queue
// Then: The end callback receives ErrStepPanicked and the pool keeps draining
func TestDrainPool_PanickingStepStillEndsSeries(t *testing.T) {
	// Arrange
	pool := NewDrainPool("series-pool", 2, WithLogger(core.NewNoOpLogger()))
	pool.Start(context.Background())
	defer pool.Stop()
	ended := make(chan error, 1)

	// Act
	SeriesOn(pool.Queue(), []SeriesStep{
		func(done Callback) { panic("worker step") },
		func(done Callback) { done(nil) },
	}, func(err error) { ended <- err })

	// Assert
	select {
	case err := <-ended:
		assert.ErrorIs(t, err, ErrStepPanicked)
	case <-time.After(5 * time.Second):
		t.Fatal("series end callback never fired")
	}
	var after atomic.Bool
	pool.Queue().PushBack(func() { after.Store(true) })
	require.Eventually(t, after.Load, 5*time.Second, time.Millisecond)
}

// TestDrainPool_WorkQueuedBeforeStart verifies a pool picks up its backlog on Start
func TestDrainPool_WorkQueuedBeforeStart(t *testing.T) {
	pool := NewDrainPoolWithConfig("pre-pool", DrainPoolConfig{Workers: 2, BatchSize: 1})
	var ran atomic.Int32
	for range 10 {
		pool.Queue().PushBack(func() { ran.Add(1) })
	}

	pool.Start(context.Background())
	defer pool.Stop()

	require.Eventually(t, func() bool {
		return ran.Load() == 10 && pool.Stats().Passes > 0
	}, 5*time.Second, time.Millisecond)
}

// TestDrainPool_StopLeavesBacklog verifies Stop keeps unrun tasks in the queue
func TestDrainPool_StopLeavesBacklog(t *testing.T) {
	pool := NewDrainPool("stopped-pool", 1)
	pool.Start(context.Background())
	pool.Stop()

	pool.Queue().PushBack(func() {})

	assert.Equal(t, 1, pool.Queue().LocalSize())
	stats := pool.Stats()
	assert.False(t, stats.Running)
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, "stopped-pool", stats.ID)
}

// TestDrainPool_WaitIdleHonorsContext verifies WaitIdle gives up when the context ends
func TestDrainPool_WaitIdleHonorsContext(t *testing.T) {
	pool := NewDrainPool("idle-pool", 1)
	pool.Queue().PushBack(func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, pool.WaitIdle(ctx), context.DeadlineExceeded)
}

func TestDrainPool_BatchFor(t *testing.T) {
	adaptive := NewDrainPool("adaptive", 4)
	fixed := NewDrainPoolWithConfig("fixed", DrainPoolConfig{Workers: 4, BatchSize: 16})

	assert.Equal(t, 1, adaptive.batchFor(1))
	assert.Equal(t, 1, adaptive.batchFor(400))
	assert.Equal(t, 2, adaptive.batchFor(401))
	assert.Equal(t, 16, fixed.batchFor(1))
}

func TestDrainPool_ForcesLockedQueue(t *testing.T) {
	pool := NewDrainPool("locked", 1, WithoutLocking())

	assert.True(t, pool.Queue().IsThreadSafe())
}

func waitGroupWithTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for callbacks")
	}
}
