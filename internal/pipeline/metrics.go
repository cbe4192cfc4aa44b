package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports pipeline counters. A nil *Metrics records nothing.
type Metrics struct {
	cycles       *prometheus.CounterVec
	duration     prometheus.Histogram
	files        prometheus.Gauge
	clusters     prometheus.Gauge
	moveFailures prometheus.Counter
	requests     prometheus.Counter
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sefs_cycles_total",
			Help: "Pipeline cycles executed, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sefs_cycle_duration_seconds",
			Help:    "Wall time of pipeline cycles.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		files: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sefs_cycle_files",
			Help: "Files embedded by the last cycle.",
		}),
		clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sefs_cycle_clusters",
			Help: "Clusters found by the last completed cycle.",
		}),
		moveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sefs_move_failures_total",
			Help: "File moves that failed.",
		}),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sefs_reprocess_requests_total",
			Help: "Reprocess requests received by the scheduler.",
		}),
	}
	reg.MustRegister(m.cycles, m.duration, m.files, m.clusters, m.moveFailures, m.requests)
	return m
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(string(r.Outcome)).Inc()
	m.duration.Observe(r.Duration().Seconds())
	m.files.Set(float64(r.Embedded))
	if r.Outcome == OutcomeCompleted {
		m.clusters.Set(float64(r.Clusters))
	}
	m.moveFailures.Add(float64(r.MoveFailures))
}

func (m *Metrics) requested() {
	if m == nil {
		return
	}
	m.requests.Inc()
}
