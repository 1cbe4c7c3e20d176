package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
)

// WithMetrics wraps s so every operation is counted and timed under the given
// backend label. A nil metrics returns s unchanged.
func WithMetrics(s Store, metrics *observability.Metrics, backend string) Store {
	if metrics == nil {
		return s
	}
	return &instrumentedStore{inner: s, metrics: metrics, backend: backend}
}

type instrumentedStore struct {
	inner   Store
	metrics *observability.Metrics
	backend string
}

func (m *instrumentedStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	start := time.Now()
	value, err := m.inner.Get(ctx, key)
	m.observe("get", start, err)
	return value, err
}

func (m *instrumentedStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	start := time.Now()
	err := m.inner.Set(ctx, key, value)
	m.observe("set", start, err)
	return err
}

func (m *instrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := m.inner.Delete(ctx, key)
	m.observe("delete", start, err)
	return err
}

func (m *instrumentedStore) observe(operation string, start time.Time, err error) {
	// A missing key is a miss, not a backend failure.
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
		m.metrics.StoreErrorsTotal.WithLabelValues(operation, m.backend).Inc()
	}
	m.metrics.StoreOperationsTotal.WithLabelValues(operation, m.backend, status).Inc()
	m.metrics.StoreOperationDuration.WithLabelValues(operation, m.backend).Observe(time.Since(start).Seconds())
}
