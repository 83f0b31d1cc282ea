// Package metrics holds the Prometheus collectors of the autofill engine and
// the HTTP server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "perfsheet"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  prometheus.Histogram
	sections         *prometheus.CounterVec
	searchIterations *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autofill_requests_total",
				Help:      "Autofill requests by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "autofill_duration_seconds",
				Help:      "Time to fill one document",
				Buckets:   prometheus.DefBuckets,
			},
		),
		sections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autofill_sections_total",
				Help:      "Section runs by section and outcome (satisfied, exhausted, error)",
			},
			[]string{"section", "outcome"},
		),
		searchIterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "autofill_search_iterations",
				Help:      "Engine evaluations per section search",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"section"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
	m.registry.MustRegister(m.requests, m.requestDuration, m.sections, m.searchIterations, m.httpRequests)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Request(success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(d.Seconds())
}

func (m *Metrics) Section(section, outcome string, iterations int) {
	if m == nil {
		return
	}
	m.sections.WithLabelValues(section, outcome).Inc()
	if iterations > 0 {
		m.searchIterations.WithLabelValues(section).Observe(float64(iterations))
	}
}

func (m *Metrics) HTTP(route, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
}
