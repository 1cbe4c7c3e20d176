package fapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
	"github.com/platinummonkey/clerk-fapi-go/pkg/config"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/store"
)

// ClientUpdateHandler receives the piggybacked Client object carried on
// Frontend API responses. The coordinator registers itself here so every
// response that touches client state flows into the state store.
type ClientUpdateHandler interface {
	OnClientUpdate(client *api.Client)
}

// Client talks to the Clerk Frontend API. Every request carries the native
// client markers; authorization headers are replayed from and captured into
// the configured store by the transport chain.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *observability.Logger
	metrics    *observability.Metrics

	mu      sync.RWMutex
	handler ClientUpdateHandler
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	logger     *observability.Logger
	metrics    *observability.Metrics
	httpClient *http.Client
}

// WithLogger sets the logger. Defaults to a silent logger.
func WithLogger(logger *observability.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables request metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithHTTPClient replaces the underlying HTTP client. The transport chain
// (tracing, native markers, authorization replay) is layered on top of the
// given client's transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) { o.httpClient = httpClient }
}

// NewClient builds a Frontend API client for the instance cfg points at.
// The store persists the captured authorization header between runs; it must
// not be nil.
func NewClient(cfg *config.Config, st store.Store, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.Nop()
	}

	baseURL, err := cfg.FrontendAPIURL()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve frontend API URL: %w", err)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	// Innermost to outermost: authorization replay/capture, native markers,
	// then tracing so spans cover the whole exchange.
	transport := newAuthTransport(base, st, o.logger)
	native := newNativeTransport(transport, cfg.UserAgent)
	httpClient.Transport = otelhttp.NewTransport(native)

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     o.logger,
		metrics:    o.metrics,
	}, nil
}

// SetUpdateHandler registers the receiver for piggybacked client updates.
// Passing nil detaches the current handler.
func (c *Client) SetUpdateHandler(handler ClientUpdateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

func (c *Client) updateHandler() ClientUpdateHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}

// BaseURL returns the resolved Frontend API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// JWKSURL returns the instance's JSON Web Key Set endpoint.
func (c *Client) JWKSURL() string {
	return c.baseURL + "/.well-known/jwks.json"
}

// doEnveloped performs a request whose response body uses the standard
// envelope. The payload is decoded into out (which may be nil) and any
// piggybacked client is forwarded to the update handler.
func (c *Client) doEnveloped(ctx context.Context, operation, method, path string, form url.Values, out interface{}) error {
	body, err := c.do(ctx, operation, method, path, form)
	if err != nil {
		return err
	}

	var envelope api.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if out != nil {
		if err := envelope.DecodeResponse(out); err != nil {
			return err
		}
	}
	if envelope.Client != nil {
		if handler := c.updateHandler(); handler != nil {
			handler.OnClientUpdate(envelope.Client)
		}
	}
	return nil
}

// doRaw performs a request whose response body is the payload itself, with
// no envelope. The environment and token endpoints respond this way.
func (c *Client) doRaw(ctx context.Context, operation, method, path string, form url.Values, out interface{}) error {
	body, err := c.do(ctx, operation, method, path, form)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, form url.Values) ([]byte, error) {
	start := time.Now()
	body, status, err := c.roundTrip(ctx, method, path, form)
	duration := time.Since(start)

	logger := c.logger.WithFields(map[string]interface{}{
		"operation":   operation,
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})

	if c.metrics != nil {
		result := "success"
		if err != nil {
			result = "error"
		}
		c.metrics.APIRequestsTotal.WithLabelValues(operation, result).Inc()
		c.metrics.APIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if err != nil {
		logger.WithError(err).Debug("Frontend API request failed")
		return nil, err
	}
	logger.Debug("Frontend API request completed")
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, form url.Values) ([]byte, int, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, newAPIError(resp.StatusCode, body)
	}
	return body, resp.StatusCode, nil
}
