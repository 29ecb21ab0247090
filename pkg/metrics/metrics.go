// Package metrics defines the Prometheus collectors used across the platform
// and serves them for scraping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	MiningRunsTotal      *prometheus.CounterVec
	MiningDuration       *prometheus.HistogramVec
	MiningItemsets       *prometheus.HistogramVec
	MiningThreshold      *prometheus.GaugeVec
	CandidatesEvaluated  *prometheus.CounterVec
	CandidatesPruned     *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	JobsProcessedTotal   *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// RunObservation summarises one finished search for recording.
type RunObservation struct {
	Strategy     string
	Status       string
	Duration     time.Duration
	Itemsets     int
	Threshold    float64
	Evaluated    int64
	BoundPruned  int64
	SubsetPruned int64
	ESPruned     int64
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		MiningRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mining_runs_total",
				Help: "Total Top-K mining runs by strategy and status (ok, no_data, timeout, rejected, error).",
			},
			[]string{"strategy", "status"},
		),
		MiningDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mining_duration_seconds",
				Help:    "Wall-clock duration of a mining run in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"strategy"},
		),
		MiningItemsets: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mining_itemsets_returned",
				Help:    "Number of itemsets returned per mining run.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"strategy"},
		),
		MiningThreshold: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mining_final_threshold",
				Help: "Final expected-support threshold of the most recent run.",
			},
			[]string{"strategy"},
		),
		CandidatesEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mining_candidates_evaluated_total",
				Help: "Total candidate itemsets whose exact expected support was computed.",
			},
			[]string{"strategy"},
		),
		CandidatesPruned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mining_candidates_pruned_total",
				Help: "Total candidates discarded by reason (bound, subset, support).",
			},
			[]string{"strategy", "reason"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		JobsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mining_jobs_processed_total",
				Help: "Total asynchronous mining jobs by status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.MiningRunsTotal,
		m.MiningDuration,
		m.MiningItemsets,
		m.MiningThreshold,
		m.CandidatesEvaluated,
		m.CandidatesPruned,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.JobsProcessedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveRun records one finished search. A nil receiver is a no-op so
// callers without metrics need no guard.
func (m *Metrics) ObserveRun(o RunObservation) {
	if m == nil {
		return
	}
	m.MiningRunsTotal.WithLabelValues(o.Strategy, o.Status).Inc()
	if o.Status != "ok" {
		return
	}
	m.MiningDuration.WithLabelValues(o.Strategy).Observe(o.Duration.Seconds())
	m.MiningItemsets.WithLabelValues(o.Strategy).Observe(float64(o.Itemsets))
	m.MiningThreshold.WithLabelValues(o.Strategy).Set(o.Threshold)
	m.CandidatesEvaluated.WithLabelValues(o.Strategy).Add(float64(o.Evaluated))
	m.CandidatesPruned.WithLabelValues(o.Strategy, "bound").Add(float64(o.BoundPruned))
	m.CandidatesPruned.WithLabelValues(o.Strategy, "subset").Add(float64(o.SubsetPruned))
	m.CandidatesPruned.WithLabelValues(o.Strategy, "support").Add(float64(o.ESPruned))
}
