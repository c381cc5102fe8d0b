package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments exposed on /metrics
type Metrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    prometheus.Counter
	BatchRuns      *prometheus.CounterVec
	BatchDuration  *prometheus.HistogramVec
	ScorerFailures *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewMetrics registers the analytics instruments on the registry
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by tier.",
		}, []string{"tier"}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses after both tiers.",
		}),
		BatchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Batch job executions by job and outcome.",
		}, []string{"job", "status"}),
		BatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "analytics",
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch job duration by job.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"job"}),
		ScorerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "scoring",
			Name:      "failures_total",
			Help:      "Per-customer scorer failures by scorer.",
		}, []string{"scorer"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "analytics",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// NewDefaultMetrics registers on the default Prometheus registry
func NewDefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// RecordCacheHit counts one cache hit for the given tier.
// Safe on a nil receiver.
func (m *Metrics) RecordCacheHit(tier string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss counts one miss after both cache tiers.
// Safe on a nil receiver.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// RecordBatch counts one batch run with its outcome and duration.
// Safe on a nil receiver so services can run without metrics wired.
func (m *Metrics) RecordBatch(job, status string, seconds float64) {
	if m == nil {
		return
	}
	m.BatchRuns.WithLabelValues(job, status).Inc()
	m.BatchDuration.WithLabelValues(job).Observe(seconds)
}

// RecordScorerFailure counts one per-customer scorer failure.
// Safe on a nil receiver.
func (m *Metrics) RecordScorerFailure(scorer string) {
	if m == nil {
		return
	}
	m.ScorerFailures.WithLabelValues(scorer).Inc()
}
