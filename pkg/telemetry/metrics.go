package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the machine provider. A nil
// *Metrics (or one created with metrics disabled) is a no-op, so callers
// record unconditionally.
type Metrics struct {
	config MetricsConfig

	providerCalls    *prometheus.CounterVec
	providerErrors   *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec

	machinesCreated prometheus.Counter
	machinesDeleted prometheus.Counter

	waitDuration *prometheus.HistogramVec

	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Total number of CloudAPI calls",
			},
			[]string{"operation"},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of failed CloudAPI calls",
			},
			[]string{"operation"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_call_duration_seconds",
				Help:      "Duration of CloudAPI calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		machinesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "machines_created_total",
				Help:      "Total number of machines created",
			},
		),
		machinesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "machines_deleted_total",
				Help:      "Total number of machines deleted",
			},
		),

		waitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wait_duration_seconds",
				Help:      "Duration of successful convergence polls in seconds",
				Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"target"},
		),

		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of provider invocations",
			},
			[]string{"operation", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of provider invocations in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"operation", "status"},
		),
	}

	collectors := []prometheus.Collector{
		m.providerCalls, m.providerErrors, m.providerDuration,
		m.machinesCreated, m.machinesDeleted,
		m.waitDuration,
		m.runsCompleted, m.runDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// enabled reports whether this collector records anything.
func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RecordProviderCall records one CloudAPI call with its outcome.
func (m *Metrics) RecordProviderCall(operation string, duration time.Duration, err error) {
	if !m.enabled() {
		return
	}
	m.providerCalls.WithLabelValues(operation).Inc()
	m.providerDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.providerErrors.WithLabelValues(operation).Inc()
	}
}

// RecordMachinesCreated adds to the created-machines counter.
func (m *Metrics) RecordMachinesCreated(n int) {
	if !m.enabled() || n <= 0 {
		return
	}
	m.machinesCreated.Add(float64(n))
}

// RecordMachinesDeleted adds to the deleted-machines counter.
func (m *Metrics) RecordMachinesDeleted(n int) {
	if !m.enabled() || n <= 0 {
		return
	}
	m.machinesDeleted.Add(float64(n))
}

// RecordWaitDuration records a successful convergence poll.
func (m *Metrics) RecordWaitDuration(target string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.waitDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordRun records one completed provider invocation.
func (m *Metrics) RecordRun(operation, status string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.runsCompleted.WithLabelValues(operation, status).Inc()
	m.runDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server in a goroutine. It returns
// immediately; serve errors are reported on the returned channel.
func (m *Metrics) StartServer() <-chan error {
	errCh := make(chan error, 1)
	if !m.enabled() {
		close(errCh)
		return errCh
	}

	mux := http.NewServeMux()
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, m.Handler())

	go func() {
		errCh <- http.ListenAndServe(m.config.ListenAddress, mux)
	}()
	return errCh
}
