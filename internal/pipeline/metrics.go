package pipeline

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dgallion1/tripgenie/internal/segment"
)

// Metrics exposes Prometheus collectors for plan generation. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	jobDuration *prometheus.HistogramVec
	retries     prometheus.Counter
	strategies  *prometheus.CounterVec
	jobsActive  prometheus.Gauge
}

// MustNewMetrics registers the pipeline collectors with reg, reusing
// collectors that are already registered. Other registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		jobDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tripgenie",
				Subsystem: "pipeline",
				Name:      "job_duration_seconds",
				Help:      "Time from job start to a terminal status.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			[]string{"outcome"},
		)),
		retries: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tripgenie",
			Subsystem: "pipeline",
			Name:      "generate_retries_total",
			Help:      "Generation attempts retried after a transient error.",
		})),
		strategies: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tripgenie",
				Subsystem: "segment",
				Name:      "results_total",
				Help:      "Segmentation results by the tier that produced them.",
			},
			[]string{"strategy"},
		)),
		jobsActive: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tripgenie",
			Subsystem: "pipeline",
			Name:      "jobs_active",
			Help:      "Jobs currently being processed.",
		})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveJob records a finished job by its terminal status.
func (m *Metrics) ObserveJob(status JobStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(string(status)).Observe(d.Seconds())
}

// IncRetry counts a retried generation attempt.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// ObserveSegment counts one segmentation result.
func (m *Metrics) ObserveSegment(strategy segment.Strategy) {
	if m == nil {
		return
	}
	m.strategies.WithLabelValues(string(strategy)).Inc()
}

func (m *Metrics) IncActiveJobs() {
	if m == nil {
		return
	}
	m.jobsActive.Inc()
}

func (m *Metrics) DecActiveJobs() {
	if m == nil {
		return
	}
	m.jobsActive.Dec()
}
