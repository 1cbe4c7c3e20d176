package fapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/store"
)

// nativeTransport marks every request as coming from a native client: the
// _is_native query parameter plus the x-mobile and x-no-origin headers. The
// Frontend API switches to header-based authorization for such clients.
type nativeTransport struct {
	base      http.RoundTripper
	userAgent string
}

func newNativeTransport(base http.RoundTripper, userAgent string) *nativeTransport {
	return &nativeTransport{base: base, userAgent: userAgent}
}

func (t *nativeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	query := clone.URL.Query()
	query.Set("_is_native", "1")
	clone.URL.RawQuery = query.Encode()

	clone.Header.Set("x-mobile", "1")
	clone.Header.Set("x-no-origin", "1")
	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	return t.base.RoundTrip(clone)
}

// authTransport replays the persisted authorization value on every request
// and captures the rotated one the Frontend API returns. On development
// instances the same mechanism carries the dev browser token.
type authTransport struct {
	base   http.RoundTripper
	store  store.Store
	logger *observability.Logger
}

func newAuthTransport(base http.RoundTripper, st store.Store, logger *observability.Logger) *authTransport {
	return &authTransport{base: base, store: st, logger: logger}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if header := t.loadHeader(req.Context()); header != "" {
		clone.Header.Set("Authorization", header)
	}

	resp, err := t.base.RoundTrip(clone)
	if err != nil {
		return nil, err
	}

	if rotated := resp.Header.Get("Authorization"); rotated != "" {
		t.storeHeader(req.Context(), rotated)
	}
	return resp, nil
}

func (t *authTransport) loadHeader(ctx context.Context) string {
	raw, err := t.store.Get(ctx, store.KeyAuthorization)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			t.logger.WithError(err).Warn("Failed to read authorization header from store")
		}
		return ""
	}
	var header string
	if err := json.Unmarshal(raw, &header); err != nil {
		t.logger.WithError(err).Warn("Stored authorization header is corrupt")
		return ""
	}
	return header
}

func (t *authTransport) storeHeader(ctx context.Context, header string) {
	// The request's context may already be canceled once the response header
	// arrives; persisting the rotated value must still succeed.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	value, err := json.Marshal(header)
	if err != nil {
		t.logger.WithError(err).Warn("Failed to encode authorization header")
		return
	}
	if err := t.store.Set(ctx, store.KeyAuthorization, value); err != nil {
		t.logger.WithError(err).Warn("Failed to persist authorization header")
	}
}
