package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known keys the SDK persists under. A configured key prefix is applied
// on top of these by WithPrefix. On development instances the authorization
// value holds the dev browser token; the capture mechanism is the same.
const (
	KeyEnvironment   = "environment"
	KeyClient        = "client"
	KeyAuthorization = "authorization"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("key not found")

// Store persists SDK state between process runs. Implementations must be safe
// for concurrent use. Operations on different keys are independent; there is
// no cross-key transactionality.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (json.RawMessage, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value json.RawMessage) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// GetJSON reads key from s and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal stored value for %q: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// WithPrefix returns a view of s with prefix prepended to every key, letting
// several SDK instances share one backend. An empty prefix returns s
// unchanged.
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixedStore{inner: s, prefix: prefix}
}

type prefixedStore struct {
	inner  Store
	prefix string
}

func (p *prefixedStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixedStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixedStore) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}
