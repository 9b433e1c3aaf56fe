// Package metrics exposes prometheus counters and histograms for the
// aggregator's fan-out, cache, and per-provider behavior.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every metric this service exports.
type Metrics struct {
	AggregateCallsTotal    prometheus.CounterVec
	AggregateCallDuration  prometheus.HistogramVec
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	ProviderCallsTotal     prometheus.CounterVec
	ProviderCallDuration   prometheus.HistogramVec
	ProviderErrorsTotal    prometheus.CounterVec
	ActiveProvidersGauge   prometheus.Gauge
}

// New registers every metric with reg and returns the handle callers
// use to record observations. Pass prometheus.DefaultRegisterer in
// production; tests pass a fresh prometheus.NewRegistry() so repeated
// calls to New don't panic on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AggregateCallsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remitquote_aggregate_calls_total",
				Help: "Total GetAllQuotes calls, labeled by outcome.",
			},
			[]string{"success", "cache_hit"},
		),

		AggregateCallDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remitquote_aggregate_call_duration_seconds",
				Help:    "End-to-end GetAllQuotes latency.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
			},
			[]string{"cache_hit"},
		),

		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "remitquote_cache_hits_total",
			Help: "Quote cache hits.",
		}),

		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "remitquote_cache_misses_total",
			Help: "Quote cache misses.",
		}),

		ProviderCallsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remitquote_provider_calls_total",
				Help: "Total adapter invocations, labeled by provider and success.",
			},
			[]string{"provider_id", "success"},
		),

		ProviderCallDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remitquote_provider_call_duration_seconds",
				Help:    "Per-adapter Quote() latency.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"provider_id"},
		),

		ProviderErrorsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remitquote_provider_errors_total",
				Help: "Adapter failures, labeled by provider and error_kind.",
			},
			[]string{"provider_id", "error_kind"},
		),

		ActiveProvidersGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "remitquote_active_providers",
			Help: "Number of adapters dispatched to by the most recent fan-out.",
		}),
	}
}

// RecordAggregateCall records one GetAllQuotes call's outcome and latency.
func (m *Metrics) RecordAggregateCall(success, cacheHit bool, durationSeconds float64) {
	m.AggregateCallsTotal.WithLabelValues(boolLabel(success), boolLabel(cacheHit)).Inc()
	m.AggregateCallDuration.WithLabelValues(boolLabel(cacheHit)).Observe(durationSeconds)
	if cacheHit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

// RecordProviderCall records one adapter invocation.
func (m *Metrics) RecordProviderCall(providerID string, success bool, durationSeconds float64, errorKind string) {
	m.ProviderCallsTotal.WithLabelValues(providerID, boolLabel(success)).Inc()
	m.ProviderCallDuration.WithLabelValues(providerID).Observe(durationSeconds)
	if !success {
		m.ProviderErrorsTotal.WithLabelValues(providerID, errorKind).Inc()
	}
}

// SetActiveProviders updates the active-provider gauge.
func (m *Metrics) SetActiveProviders(count int) {
	m.ActiveProvidersGauge.Set(float64(count))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
