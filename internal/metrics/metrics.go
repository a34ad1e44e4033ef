// Package metrics exposes Prometheus collectors for sessions, finalize runs and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option configures a Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets the latency buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.runtime = true
	}
}

// Manager owns a private registry and every collector registered on it.
// It satisfies session.Observer and pipeline.FinalizeObserver.
type Manager struct {
	namespace string
	buckets   []float64
	runtime   bool
	registry  *prometheus.Registry

	sessionsCreated prometheus.Counter
	sessionsTaken   prometheus.Counter
	sessionsMissed  prometheus.Counter
	sessionsEvicted prometheus.Counter
	sessionsActive  prometheus.Gauge

	finalizeDuration *prometheus.HistogramVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager with a fresh registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "jobpilot",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)

	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sessions", Name: "created_total",
		Help: "Suggestion sessions stored",
	})
	m.sessionsTaken = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sessions", Name: "taken_total",
		Help: "Sessions consumed by finalize",
	})
	m.sessionsMissed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sessions", Name: "missed_total",
		Help: "Lookups of unknown or expired sessions",
	})
	m.sessionsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "sessions", Name: "evicted_total",
		Help: "Sessions dropped after their TTL",
	})
	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "sessions", Name: "active",
		Help: "Sessions currently held",
	})

	m.finalizeDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "finalize", Name: "duration_seconds",
		Help:    "Finalize latency by outcome",
		Buckets: m.buckets,
	}, []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: m.buckets,
	}, []string{"method", "route"})

	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) SessionStored()        { m.sessionsCreated.Inc() }
func (m *Manager) SessionTaken()         { m.sessionsTaken.Inc() }
func (m *Manager) SessionMissed()        { m.sessionsMissed.Inc() }
func (m *Manager) SessionsEvicted(n int) { m.sessionsEvicted.Add(float64(n)) }
func (m *Manager) SessionsActive(n int)  { m.sessionsActive.Set(float64(n)) }

// ObserveFinalize records one finalize attempt.
func (m *Manager) ObserveFinalize(d time.Duration, outcome string) {
	m.finalizeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveHTTP records one served request. route should be the mux pattern, not the raw path.
func (m *Manager) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
