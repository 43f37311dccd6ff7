package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-event-queue/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// QueueSnapshotProvider provides current queue stats snapshots.
type QueueSnapshotProvider interface {
	Stats() core.QueueStats
}

// PoolSnapshotProvider provides current drain pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports queue/pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	queuesMu sync.RWMutex
	queues   map[string]QueueSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	queueLocal    *prom.GaugeVec
	queueBacklog  *prom.GaugeVec
	queueExecuted *prom.GaugeVec
	queueCanceled *prom.GaugeVec

	poolWorkers *prom.GaugeVec
	poolActive  *prom.GaugeVec
	poolPasses  *prom.GaugeVec
	poolRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	queueLocal := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "eventqueue",
		Name:      "queue_local_tasks",
		Help:      "Tasks held directly by the queue.",
	}, []string{"queue"})
	queueBacklog := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "eventqueue",
		Name:      "queue_backlog",
		Help:      "Aggregate backlog including pending strand sub-steps.",
	}, []string{"queue"})
	queueExecuted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "eventqueue",
		Name:      "queue_executed_total",
		Help:      "Queue executed task count snapshot.",
	}, []string{"queue"})
	queueCanceled := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "eventqueue",
		Name:      "queue_canceled_total",
		Help:      "Queue canceled task count snapshot.",
	}, []string{"queue"})

	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "eventqueue",
		Name:      "pool_workers",
		Help:      "Worker count per drain pool.",
	}, []string{"pool"})
	poolActive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "eventqueue",
		Name:      "pool_active",
		Help:      "Workers currently draining per pool.",
	}, []string{"pool"})
	poolPasses := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "eventqueue",
		Name:      "pool_passes_total",
		Help:      "Drain passes completed per pool.",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "eventqueue",
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})

	var err error
	for _, g := range []**prom.GaugeVec{
		&queueLocal, &queueBacklog, &queueExecuted, &queueCanceled,
		&poolWorkers, &poolActive, &poolPasses, &poolRunning,
	} {
		if *g, err = registerCollector(reg, *g); err != nil {
			return nil, err
		}
	}

	return &SnapshotPoller{
		interval:      interval,
		queues:        make(map[string]QueueSnapshotProvider),
		pools:         make(map[string]PoolSnapshotProvider),
		queueLocal:    queueLocal,
		queueBacklog:  queueBacklog,
		queueExecuted: queueExecuted,
		queueCanceled: queueCanceled,
		poolWorkers:   poolWorkers,
		poolActive:    poolActive,
		poolPasses:    poolPasses,
		poolRunning:   poolRunning,
	}, nil
}

// AddQueue adds or replaces a queue snapshot provider by name.
func (p *SnapshotPoller) AddQueue(name string, provider QueueSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "queue")
	p.queuesMu.Lock()
	p.queues[name] = provider
	p.queuesMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.queuesMu.RLock()
	for name, provider := range p.queues {
		stats := provider.Stats()
		p.queueLocal.WithLabelValues(name).Set(float64(stats.Local))
		p.queueBacklog.WithLabelValues(name).Set(float64(stats.Size))
		p.queueExecuted.WithLabelValues(name).Set(float64(stats.Executed))
		p.queueCanceled.WithLabelValues(name).Set(float64(stats.Canceled))
	}
	p.queuesMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolPasses.WithLabelValues(name).Set(float64(stats.Passes))
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
	}
	p.poolsMu.RUnlock()
}
