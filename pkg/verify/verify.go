// Package verify checks session token signatures against the instance's JSON
// Web Key Set.
//
// Tokens minted through the coordinator arrive over TLS and do not need this;
// verify is for tokens handed to a backend by an untrusted caller, such as a
// mobile app forwarding its session JWT. Keys are fetched from the Frontend
// API's JWKS endpoint and cached between verifications, refetching only when
// an unknown key ID shows up.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/platinummonkey/clerk-fapi-go/pkg/config"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/sessiontoken"
)

// Verifier validates session JWTs issued by a single Clerk instance.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	issuer   string
	logger   *observability.Logger
	metrics  *observability.Metrics
}

type options struct {
	logger     *observability.Logger
	metrics    *observability.Metrics
	httpClient *http.Client
	issuer     string
	jwksURL    string
}

// Option customizes a Verifier.
type Option func(*options)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *observability.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables verification metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithHTTPClient sets the client used for JWKS fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithIssuer overrides the expected iss claim. Defaults to the instance
// origin derived from the publishable key.
func WithIssuer(issuer string) Option {
	return func(o *options) { o.issuer = issuer }
}

// WithJWKSURL overrides the key set endpoint. Defaults to the instance's
// /.well-known/jwks.json under the Frontend API base URL.
func WithJWKSURL(url string) Option {
	return func(o *options) { o.jwksURL = url }
}

// New builds a Verifier for the instance cfg points at. ctx is held by the
// remote key set and scopes its background key fetches, so it should outlive
// the Verifier's use, not just this call.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Verifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.Nop()
	}

	baseURL, err := cfg.FrontendAPIURL()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Frontend API URL: %w", err)
	}
	issuer := o.issuer
	if issuer == "" {
		issuer = strings.TrimSuffix(baseURL, "/v1")
	}
	jwksURL := o.jwksURL
	if jwksURL == "" {
		jwksURL = baseURL + "/.well-known/jwks.json"
	}

	if o.httpClient != nil {
		ctx = oidc.ClientContext(ctx, o.httpClient)
	}
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)

	// Session tokens carry no audience, and azp replaces it for origin
	// checks, so the client ID check is skipped.
	verifier := oidc.NewVerifier(issuer, keySet, &oidc.Config{
		SkipClientIDCheck:    true,
		SupportedSigningAlgs: []string{oidc.RS256},
	})

	return &Verifier{
		verifier: verifier,
		issuer:   issuer,
		logger:   o.logger,
		metrics:  o.metrics,
	}, nil
}

// Issuer returns the iss value tokens are checked against.
func (v *Verifier) Issuer() string {
	return v.issuer
}

// Verify checks raw's signature, issuer, and expiry, and returns its claims.
func (v *Verifier) Verify(ctx context.Context, raw string) (*sessiontoken.Claims, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		v.observe("error")
		return nil, fmt.Errorf("failed to verify session token: %w", err)
	}

	claims := &sessiontoken.Claims{}
	if err := idToken.Claims(claims); err != nil {
		v.observe("error")
		return nil, fmt.Errorf("failed to decode session token claims: %w", err)
	}

	v.observe("success")
	v.logger.WithFields(map[string]interface{}{
		"user_id":    claims.UserID(),
		"session_id": claims.SessionID,
	}).Debug("Session token verified")
	return claims, nil
}

func (v *Verifier) observe(status string) {
	if v.metrics == nil {
		return
	}
	v.metrics.TokenVerificationsTotal.WithLabelValues(status).Inc()
}
