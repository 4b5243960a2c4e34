package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	classifyTotal    *prometheus.CounterVec
	classifyDuration *prometheus.HistogramVec
	jobTotal         *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobsInFlight     prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	classifyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clausecheck",
			Subsystem: "classifier",
			Name:      "calls_total",
			Help:      "Completion calls by policy and status.",
		},
		[]string{"policy", "status"},
	)
	classifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clausecheck",
			Subsystem: "classifier",
			Name:      "call_duration_seconds",
			Help:      "Completion call latency by policy.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"policy"},
	)
	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clausecheck",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Processed spreadsheets by mode and status.",
		},
		[]string{"mode", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clausecheck",
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "Spreadsheet processing duration by mode.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"mode"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clausecheck",
			Subsystem: "pipeline",
			Name:      "jobs_in_flight",
			Help:      "Spreadsheets currently being processed.",
		},
	)

	registry.MustRegister(classifyTotal, classifyDuration, jobTotal, jobDuration, jobsInFlight)

	return &Metrics{
		registry:         registry,
		classifyTotal:    classifyTotal,
		classifyDuration: classifyDuration,
		jobTotal:         jobTotal,
		jobDuration:      jobDuration,
		jobsInFlight:     jobsInFlight,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveClassification(policy string, failed bool, d time.Duration) {
	status := "success"
	if failed {
		status = "error"
	}
	m.classifyTotal.WithLabelValues(policy, status).Inc()
	m.classifyDuration.WithLabelValues(policy).Observe(d.Seconds())
}

func (m *Metrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *Metrics) FinishJob(mode string, d time.Duration, err error) {
	m.jobsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.jobTotal.WithLabelValues(mode, status).Inc()
	m.jobDuration.WithLabelValues(mode).Observe(d.Seconds())
}
