package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Ledger metrics
	LedgerOperations        *prometheus.CounterVec
	LedgerOperationDuration *prometheus.HistogramVec

	// Storage metrics
	CollectionFallbacks  *prometheus.CounterVec
	PersistenceFailures  *prometheus.CounterVec
	AssetReleaseFailures *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		LedgerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total number of ledger operations by outcome",
			},
			[]string{"ledger", "operation", "status"},
		),

		LedgerOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Ledger operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"ledger", "operation"},
		),

		CollectionFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collection_fallbacks_total",
				Help: "Collections replaced by their empty default on load",
			},
			[]string{"collection", "reason"},
		),

		PersistenceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "persistence_failures_total",
				Help: "Failed collection or database writes",
			},
			[]string{"store"},
		),

		AssetReleaseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_release_failures_total",
				Help: "Campaign assets that could not be deleted after purge",
			},
			[]string{"backend"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summary_cache_lookups_total",
				Help: "Summary cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Ledger operation outcome and latency
func (m *Metrics) RecordOperation(ledger, operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LedgerOperations.WithLabelValues(ledger, operation, status).Inc()
	m.LedgerOperationDuration.WithLabelValues(ledger, operation).Observe(duration.Seconds())
}

// Collection load fallback (missing or corrupt)
func (m *Metrics) RecordCollectionFallback(collection, reason string) {
	m.CollectionFallbacks.WithLabelValues(collection, reason).Inc()
}

func (m *Metrics) RecordPersistenceFailure(store string) {
	m.PersistenceFailures.WithLabelValues(store).Inc()
}

func (m *Metrics) RecordAssetReleaseFailure(backend string) {
	m.AssetReleaseFailures.WithLabelValues(backend).Inc()
}

// Cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
