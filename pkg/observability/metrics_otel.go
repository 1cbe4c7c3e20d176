package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics mirrors the SDK's Prometheus metrics as OpenTelemetry
// instruments for host applications that export through OTLP instead of
// scraping. Instruments record against the globally registered meter
// provider, so hosts that never call InitOTel pay nothing.
type OTelMetrics struct {
	// Frontend API metrics
	apiRequestsTotal   metric.Int64Counter
	apiRequestDuration metric.Float64Histogram

	// Session state metrics
	stateUpdatesTotal        metric.Int64Counter
	listenerInvocationsTotal metric.Int64Counter
	sessionsActive           metric.Int64Gauge

	// Token cache metrics
	tokenCacheHitsTotal      metric.Int64Counter
	tokenCacheMissesTotal    metric.Int64Counter
	tokenCacheEvictionsTotal metric.Int64Counter
	tokenCacheSize           metric.Int64Gauge

	// State store metrics
	storeOperationsTotal   metric.Int64Counter
	storeOperationDuration metric.Float64Histogram
}

// NewOTelMetrics creates the SDK's OpenTelemetry instruments.
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/clerk-fapi-go")

	m := &OTelMetrics{}
	var err error

	// Frontend API metrics
	m.apiRequestsTotal, err = meter.Int64Counter(
		"clerk.api.requests",
		metric.WithDescription("Total number of Frontend API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api_requests counter: %w", err)
	}

	m.apiRequestDuration, err = meter.Float64Histogram(
		"clerk.api.duration",
		metric.WithDescription("Frontend API request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api_request_duration histogram: %w", err)
	}

	// Session state metrics
	m.stateUpdatesTotal, err = meter.Int64Counter(
		"clerk.state.updates",
		metric.WithDescription("Total number of accepted session state updates"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create state_updates counter: %w", err)
	}

	m.listenerInvocationsTotal, err = meter.Int64Counter(
		"clerk.listener.invocations",
		metric.WithDescription("Total number of state listener invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener_invocations counter: %w", err)
	}

	m.sessionsActive, err = meter.Int64Gauge(
		"clerk.sessions.active",
		metric.WithDescription("Number of sessions on the current client"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions_active gauge: %w", err)
	}

	// Token cache metrics
	m.tokenCacheHitsTotal, err = meter.Int64Counter(
		"clerk.token_cache.hits",
		metric.WithDescription("Total number of session token cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_cache_hits counter: %w", err)
	}

	m.tokenCacheMissesTotal, err = meter.Int64Counter(
		"clerk.token_cache.misses",
		metric.WithDescription("Total number of session token cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_cache_misses counter: %w", err)
	}

	m.tokenCacheEvictionsTotal, err = meter.Int64Counter(
		"clerk.token_cache.evictions",
		metric.WithDescription("Total number of session tokens evicted from the cache"),
		metric.WithUnit("{eviction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_cache_evictions counter: %w", err)
	}

	m.tokenCacheSize, err = meter.Int64Gauge(
		"clerk.token_cache.size",
		metric.WithDescription("Number of session tokens currently cached"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_cache_size gauge: %w", err)
	}

	// State store metrics
	m.storeOperationsTotal, err = meter.Int64Counter(
		"clerk.store.operations",
		metric.WithDescription("Total number of state store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_operations counter: %w", err)
	}

	m.storeOperationDuration, err = meter.Float64Histogram(
		"clerk.store.operation.duration",
		metric.WithDescription("State store operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_operation_duration histogram: %w", err)
	}

	return m, nil
}

// RecordAPIRequest records one Frontend API call.
func (m *OTelMetrics) RecordAPIRequest(ctx context.Context, operation, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("clerk.operation", operation),
		attribute.String("clerk.status", status),
	}

	m.apiRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordStateUpdate records one accepted state update. Source is where the
// update came from: a load, a piggybacked client, or an explicit SetLoaded.
func (m *OTelMetrics) RecordStateUpdate(ctx context.Context, source string) {
	m.stateUpdatesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("clerk.source", source),
	))
}

// RecordListenerInvocation records one listener callback delivery.
func (m *OTelMetrics) RecordListenerInvocation(ctx context.Context, status string) {
	m.listenerInvocationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("clerk.status", status),
	))
}

// RecordActiveSessions records the current number of sessions on the client.
func (m *OTelMetrics) RecordActiveSessions(ctx context.Context, count int64) {
	m.sessionsActive.Record(ctx, count)
}

// RecordTokenCacheHit records a token served from the cache.
func (m *OTelMetrics) RecordTokenCacheHit(ctx context.Context) {
	m.tokenCacheHitsTotal.Add(ctx, 1)
}

// RecordTokenCacheMiss records a token that had to be minted.
func (m *OTelMetrics) RecordTokenCacheMiss(ctx context.Context) {
	m.tokenCacheMissesTotal.Add(ctx, 1)
}

// RecordTokenCacheEviction records a token dropped from the cache.
func (m *OTelMetrics) RecordTokenCacheEviction(ctx context.Context) {
	m.tokenCacheEvictionsTotal.Add(ctx, 1)
}

// RecordTokenCacheSize records the current token cache population.
func (m *OTelMetrics) RecordTokenCacheSize(ctx context.Context, size int64) {
	m.tokenCacheSize.Record(ctx, size)
}

// RecordStoreOperation records one state store operation against a backend.
func (m *OTelMetrics) RecordStoreOperation(ctx context.Context, operation, backend string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("clerk.operation", operation),
		attribute.String("clerk.backend", backend),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", "true"))
	} else {
		attrs = append(attrs, attribute.String("error", "false"))
	}

	m.storeOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.storeOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
