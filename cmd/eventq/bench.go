package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/Swind/go-event-queue"
	"github.com/Swind/go-event-queue/core"
	obs "github.com/Swind/go-event-queue/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

// stepsPerPipeline is the number of increment steps of every benchmark series.
const stepsPerPipeline = 3

type benchConfig struct {
	Workers   int
	Pipelines int
	Rounds    int
	Batch     int
	Timeout   time.Duration
}

type benchResult struct {
	Counter  int64
	Expected int64
	Elapsed  time.Duration
	Pool     core.PoolStats
	Queue    core.QueueStats
}

func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:    "bench",
		Aliases: []string{"b"},
		Usage:   "Run concurrent series pipelines on a drain pool",

		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   4,
				Usage:   "Number of draining goroutines",
			},
			&cli.IntFlag{
				Name:    "pipelines",
				Aliases: []string{"p"},
				Value:   1000,
				Usage:   "Series started per round",
			},
			&cli.IntFlag{
				Name:    "rounds",
				Aliases: []string{"r"},
				Value:   10,
				Usage:   "Number of rounds",
			},
			&cli.IntFlag{
				Name:  "batch",
				Usage: "Tasks per drain pass (0 = adaptive)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: time.Minute,
				Usage: "Abort when a round takes longer than this",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :2112",
			},
		},

		Action: BenchAction,
	}
}

func BenchAction(c *cli.Context) error {
	cfg := benchConfig{
		Workers:   c.Int("workers"),
		Pipelines: c.Int("pipelines"),
		Rounds:    c.Int("rounds"),
		Batch:     c.Int("batch"),
		Timeout:   c.Duration("timeout"),
	}
	if cfg.Workers < 1 || cfg.Pipelines < 1 || cfg.Rounds < 1 {
		return cli.Exit("workers, pipelines and rounds must be positive", 1)
	}

	reg := prom.NewRegistry()
	if addr := c.String("metrics-addr"); addr != "" {
		stop := serveMetrics(addr, reg)
		defer stop()
	}

	res, err := runBench(c.Context, cfg, reg, c.App.Writer)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}

	fmt.Fprintf(c.App.Writer, "✓ counter=%d expected=%d elapsed=%s passes=%d executed=%d\n",
		res.Counter, res.Expected, res.Elapsed, res.Pool.Passes, res.Queue.Executed)
	return nil
}

// runBench starts cfg.Pipelines series per round on a shared pool and checks that
// every increment step ran exactly once.
func runBench(ctx context.Context, cfg benchConfig, reg prom.Registerer, out io.Writer) (benchResult, error) {
	exporter, err := obs.NewMetricsExporter("eventqueue", reg, obs.ExporterOptions{})
	if err != nil {
		return benchResult{}, err
	}
	poller, err := obs.NewSnapshotPoller(reg, 100*time.Millisecond)
	if err != nil {
		return benchResult{}, err
	}

	pool := eventqueue.NewDrainPoolWithConfig("bench", eventqueue.DrainPoolConfig{
		Workers:   cfg.Workers,
		BatchSize: cfg.Batch,
	}, eventqueue.WithMetrics(exporter))
	pool.Start(ctx)
	defer pool.Stop()

	poller.AddQueue("bench", pool.Queue())
	poller.AddPool("bench", pool)
	poller.Start(ctx)
	defer poller.Stop()

	var counter atomic.Int64
	inc := func(done eventqueue.Callback) {
		counter.Add(1)
		done(nil)
	}
	steps := make([]eventqueue.SeriesStep, stepsPerPipeline)
	for i := range steps {
		steps[i] = inc
	}

	start := time.Now()
	for round := range cfg.Rounds {
		var wg sync.WaitGroup
		var failed atomic.Pointer[error]
		wg.Add(cfg.Pipelines)
		for range cfg.Pipelines {
			eventqueue.SeriesOn(pool.Queue(), steps, func(err error) {
				if err != nil {
					failed.CompareAndSwap(nil, &err)
				}
				wg.Done()
			})
		}
		if err := waitRound(ctx, &wg, cfg.Timeout); err != nil {
			return benchResult{}, fmt.Errorf("round %d: %w", round, err)
		}
		if errp := failed.Load(); errp != nil {
			return benchResult{}, fmt.Errorf("round %d: %w", round, *errp)
		}
		if out != nil {
			fmt.Fprintf(out, "round %d done, counter=%d\n", round, counter.Load())
		}
	}

	res := benchResult{
		Counter:  counter.Load(),
		Expected: int64(cfg.Pipelines * stepsPerPipeline * cfg.Rounds),
		Elapsed:  time.Since(start),
		Pool:     pool.Stats(),
		Queue:    pool.Queue().Stats(),
	}
	if res.Counter != res.Expected {
		return res, fmt.Errorf("counter %d, expected %d", res.Counter, res.Expected)
	}
	return res, nil
}

var errRoundTimeout = errors.New("timed out waiting for pipelines")

func waitRound(ctx context.Context, wg *sync.WaitGroup, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = time.Minute
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errRoundTimeout
	}
}

func serveMetrics(addr string, reg *prom.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.DefaultLog().Error("metrics server stopped", core.F("addr", addr), core.F("error", err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
