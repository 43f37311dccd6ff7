package prometheus

import (
	"testing"
	"time"

	"github.com/Swind/go-event-queue/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMetricsExporter_RecordMethods verifies every core.Metrics hook lands in its collector
// Given: An exporter on a private registry
// When: Each Record method is called once
// Then: The matching counter, gauge and histogram reflect the call
func TestMetricsExporter_RecordMethods(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("eventqueue", reg, ExporterOptions{})
	require.NoError(t, err)

	// Act
	exporter.RecordTaskDuration("queue-a", core.TaskKindStrand, 250*time.Millisecond)
	exporter.RecordTaskPanic("queue-a", "panic")
	exporter.RecordQueueDepth("queue-a", 7)
	exporter.RecordTaskCanceled("queue-a")
	exporter.RecordRequeue("queue-a", core.RequeueFront)
	exporter.RecordRequeue("queue-a", core.RequeueFront)

	// Assert
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("queue-a")))
	assert.Equal(t, 7.0, testutil.ToFloat64(exporter.queueDepth.WithLabelValues("queue-a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.taskCanceledTotal.WithLabelValues("queue-a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.taskRequeueTotal.WithLabelValues("queue-a", "front")))

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("queue-a", "strand"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

// TestMetricsExporter_AlreadyRegisteredReuse verifies exporters share collectors on one registry
// Given: Two exporters created with the same namespace and registry
// When: Both record a panic
// Then: The shared counter reports both
func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("eventqueue", reg, ExporterOptions{})
	require.NoError(t, err)
	second, err := NewMetricsExporter("eventqueue", reg, ExporterOptions{})
	require.NoError(t, err)

	// Act
	first.RecordTaskPanic("queue-a", nil)
	second.RecordTaskPanic("queue-a", nil)

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("queue-a")))
}

// TestMetricsExporter_WiredIntoQueue verifies a queue reports through the exporter
// Given: A queue built WithMetrics(exporter) holding a requeuing strand with two steps
// When: The queue is drained with Run
// Then: Durations are observed per kind and the requeue and depth metrics are set
func TestMetricsExporter_WiredIntoQueue(t *testing.T) {
	// Arrange
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	require.NoError(t, err)

	q := core.NewQueue(core.WithName("wired"), core.WithMetrics(exporter), core.WithoutLocking())
	s := core.NewStrand[int](q, true)
	s.PushBack(func() {})
	s.PushBack(func() {})
	q.PushBack(func() {})

	// Act
	q.Run(0)

	// Assert
	strandRuns, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("wired", "strand"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), strandRuns)

	plainRuns, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("wired", "plain"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), plainRuns)

	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.taskRequeueTotal.WithLabelValues("wired", "back")))
	assert.Equal(t, 0.0, testutil.ToFloat64(exporter.queueDepth.WithLabelValues("wired")))
}

// TestMetricsExporter_NilReceiver verifies a nil exporter is a safe no-op
func TestMetricsExporter_NilReceiver(t *testing.T) {
	var exporter *MetricsExporter

	assert.NotPanics(t, func() {
		exporter.RecordTaskDuration("q", core.TaskKindPlain, time.Millisecond)
		exporter.RecordTaskPanic("q", nil)
		exporter.RecordQueueDepth("q", 1)
		exporter.RecordTaskCanceled("q")
		exporter.RecordRequeue("q", core.RequeueBack)
	})
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
