// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys set by the SDK's HTTP middleware must be
// defined here. This prevents typos, documents dependencies, and lets
// handlers read request-scoped values without importing the middleware
// package.
//
// USAGE PATTERN:
//   import "github.com/platinummonkey/clerk-fapi-go/pkg/contextkeys"
//   ctx = contextkeys.WithSessionClaims(ctx, claims)
//   claims := contextkeys.SessionClaims(ctx)
package contextkeys

import (
	"context"

	"github.com/platinummonkey/clerk-fapi-go/pkg/sessiontoken"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SessionClaimsKey contains *sessiontoken.Claims
	// Set by: middleware.SessionMiddleware (pkg/middleware/session.go)
	// Required by: Handlers behind the middleware, organization middleware
	// Type: *sessiontoken.Claims
	SessionClaimsKey Key = "session_claims"
)

// WithSessionClaims returns a context carrying verified session claims.
func WithSessionClaims(ctx context.Context, claims *sessiontoken.Claims) context.Context {
	return context.WithValue(ctx, SessionClaimsKey, claims)
}

// SessionClaims returns the verified session claims, or nil when the request
// never passed session verification.
func SessionClaims(ctx context.Context) *sessiontoken.Claims {
	claims, _ := ctx.Value(SessionClaimsKey).(*sessiontoken.Claims)
	return claims
}
