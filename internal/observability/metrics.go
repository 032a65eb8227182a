package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "profile_grid"

// Metrics holds the Prometheus counters, histograms, and gauges for the gridding pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	ProfilesGridded  prometheus.Counter
	GridErrors       *prometheus.CounterVec // labels: reason={parse,timestamp,missing_variable,empty,invalid_coordinate,non_finite,config,other}
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Output metrics.
	BinsPerProfile prometheus.Histogram
	SinkWrites     *prometheus.CounterVec // labels: sink={kafka,sqlite}, outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total raw profile messages read from the source topic.",
		}),
		ProfilesGridded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_gridded_total",
			Help:      "Total gridded profiles written to the sinks.",
		}),
		GridErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_errors_total",
			Help:      "Profiles skipped because they could not be parsed or gridded, by reason.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-grid-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		BinsPerProfile: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bins_per_profile",
			Help:      "Number of non-empty bins in each gridded profile.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		SinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Gridded profile batches written per sink, by outcome.",
		}, []string{"sink", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.ProfilesGridded,
		m.GridErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.BinsPerProfile,
		m.SinkWrites,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered on a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
