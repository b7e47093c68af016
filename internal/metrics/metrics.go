// Package metrics exposes Prometheus collectors for history mutations, scoring
// passes and HTTP traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "injtracker"

// Scoring pass labels.
const (
	PassField     = "field"
	PassQuadrants = "quadrants"
	PassPoint     = "point"
	PassWarning   = "warning"
	PassNextDue   = "next_due"
)

// DefaultScoringBuckets favours sub-millisecond passes; a full field at the
// default resolution is a few thousand Gaussian evaluations per record.
var DefaultScoringBuckets = []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1}

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	InjectionsRecorded prometheus.Counter
	InjectionsRemoved  prometheus.Counter
	InjectionsImported prometheus.Counter
	HistorySize        prometheus.Gauge
	ScoringDuration    *prometheus.HistogramVec
	HTTPRequests       *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InjectionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "injections_recorded_total",
			Help:      "Injections recorded by the user.",
		}),
		InjectionsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "injections_removed_total",
			Help:      "Injections removed from the history.",
		}),
		InjectionsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "injections_imported_total",
			Help:      "Injections added through document import.",
		}),
		HistorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_size",
			Help:      "Injections seen by the latest scoring pass.",
		}),
		ScoringDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Duration of recommendation passes.",
			Buckets:   DefaultScoringBuckets,
		}, []string{"pass"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.InjectionsRecorded,
		m.InjectionsRemoved,
		m.InjectionsImported,
		m.HistorySize,
		m.ScoringDuration,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveScoring records a finished scoring pass over historySize injections.
func (m *Metrics) ObserveScoring(pass string, start time.Time, historySize int) {
	if m == nil {
		return
	}
	m.ScoringDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds())
	m.HistorySize.Set(float64(historySize))
}

// Recorded counts one new injection.
func (m *Metrics) Recorded() {
	if m != nil {
		m.InjectionsRecorded.Inc()
	}
}

// Removed counts n removed injections.
func (m *Metrics) Removed(n int) {
	if m != nil {
		m.InjectionsRemoved.Add(float64(n))
	}
}

// Imported counts n injections added by an import.
func (m *Metrics) Imported(n int) {
	if m != nil {
		m.InjectionsImported.Add(float64(n))
	}
}

// Request counts one HTTP request.
func (m *Metrics) Request(method, route string, status int) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}
