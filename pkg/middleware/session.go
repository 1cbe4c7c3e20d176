package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/platinummonkey/clerk-fapi-go/pkg/contextkeys"
	"github.com/platinummonkey/clerk-fapi-go/pkg/httputil"
	"github.com/platinummonkey/clerk-fapi-go/pkg/sessiontoken"
)

// TokenVerifier verifies a raw session token and returns its claims.
// *verify.Verifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*sessiontoken.Claims, error)
}

// SessionMiddleware provides session token authentication
type SessionMiddleware struct {
	verifier TokenVerifier
	optional bool // If true, allow requests without a token
}

// NewSessionMiddleware creates a new session verification middleware
func NewSessionMiddleware(verifier TokenVerifier, optional bool) *SessionMiddleware {
	return &SessionMiddleware{
		verifier: verifier,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with session verification
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				// Continue without a session
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			var expired *oidc.TokenExpiredError
			if errors.As(err, &expired) {
				httputil.WriteUnauthorized(w, "session token expired")
				return
			}
			httputil.WriteUnauthorized(w, "invalid session token")
			return
		}

		// Add verified claims to the request
		ctx := contextkeys.WithSessionClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionClaims extracts verified session claims from the request. It
// returns nil when the request never passed session verification.
func GetSessionClaims(r *http.Request) *sessiontoken.Claims {
	return contextkeys.SessionClaims(r.Context())
}
