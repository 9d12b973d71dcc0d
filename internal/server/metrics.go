package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the fit service.
type Metrics struct {
	jobsTotal   *prometheus.CounterVec
	evaluations prometheus.Histogram
	running     prometheus.Gauge
}

// NewMetrics creates the service metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simplexd",
			Name:      "jobs_total",
			Help:      "Optimization jobs by objective and outcome.",
		}, []string{"objective", "outcome"}),
		evaluations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "simplexd",
			Name:      "job_evaluations",
			Help:      "Objective evaluations spent per completed job.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simplexd",
			Name:      "jobs_running",
			Help:      "Optimization jobs currently running.",
		}),
	}
	reg.MustRegister(m.jobsTotal, m.evaluations, m.running)
	return m
}

func (m *Metrics) jobStarted() {
	m.running.Inc()
}

func (m *Metrics) jobFinished(objective, outcome string, evaluations int) {
	m.running.Dec()
	m.jobsTotal.WithLabelValues(objective, outcome).Inc()
	if evaluations > 0 {
		m.evaluations.Observe(float64(evaluations))
	}
}
