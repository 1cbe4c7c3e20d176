package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics exposed by the SDK
type Metrics struct {
	// Frontend API call metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// State synchronizer metrics
	StateUpdatesTotal        *prometheus.CounterVec
	ListenerInvocationsTotal *prometheus.CounterVec
	ListenersActive          prometheus.Gauge
	SessionsActive           prometheus.Gauge

	// Token cache metrics
	TokenCacheHitsTotal      prometheus.Counter
	TokenCacheMissesTotal    prometheus.Counter
	TokenCacheEvictionsTotal prometheus.Counter

	// Token verification metrics
	TokenVerificationsTotal *prometheus.CounterVec

	// Session keep-alive metrics
	KeepAliveRunsTotal *prometheus.CounterVec

	// Persistence metrics
	StoreOperationsTotal    *prometheus.CounterVec
	StoreOperationDuration  *prometheus.HistogramVec
	StoreErrorsTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_api_requests_total",
				Help: "Total number of Frontend API requests",
			},
			[]string{"operation", "status"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clerk_api_request_duration_seconds",
				Help:    "Frontend API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		StateUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_state_updates_total",
				Help: "Total number of accepted client snapshot updates",
			},
			[]string{"source"},
		),
		ListenerInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_listener_invocations_total",
				Help: "Total number of listener callback invocations",
			},
			[]string{"status"},
		),
		ListenersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "clerk_listeners_active",
				Help: "Number of registered state listeners",
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "clerk_sessions_active",
				Help: "Number of sessions on the current client",
			},
		),

		TokenCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clerk_token_cache_hits_total",
				Help: "Total number of session token cache hits",
			},
		),
		TokenCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clerk_token_cache_misses_total",
				Help: "Total number of session token cache misses",
			},
		),
		TokenCacheEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clerk_token_cache_evictions_total",
				Help: "Total number of session token cache evictions",
			},
		),

		TokenVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_token_verifications_total",
				Help: "Total number of session token signature verifications",
			},
			[]string{"status"},
		),

		KeepAliveRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_keepalive_runs_total",
				Help: "Total number of session keep-alive touches",
			},
			[]string{"status"},
		),

		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_store_operations_total",
				Help: "Total number of persistence store operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clerk_store_operation_duration_seconds",
				Help:    "Persistence store operation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "backend"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clerk_store_errors_total",
				Help: "Total number of persistence store errors",
			},
			[]string{"operation", "backend"},
		),
	}

	registry.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.StateUpdatesTotal,
		m.ListenerInvocationsTotal,
		m.ListenersActive,
		m.SessionsActive,
		m.TokenCacheHitsTotal,
		m.TokenCacheMissesTotal,
		m.TokenCacheEvictionsTotal,
		m.TokenVerificationsTotal,
		m.KeepAliveRunsTotal,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.StoreErrorsTotal,
	)

	return m
}

// RegisterMetricsEndpoint registers the /metrics endpoint on a host
// application's mux. The SDK never starts its own listener.
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
