// Package sessiontoken inspects Clerk session JWTs without verifying them.
//
// Minted tokens come straight from the Frontend API over TLS, so the SDK
// trusts their contents for local bookkeeping (cache lifetimes, active
// organization hints). Cryptographic verification of tokens received from
// untrusted peers lives in pkg/verify.
package sessiontoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the payload fields of a Clerk session token. The organization
// fields are present only when the session has an active organization.
type Claims struct {
	jwt.RegisteredClaims

	// SessionID is the session this token was minted for.
	SessionID string `json:"sid,omitempty"`

	// AuthorizedParty is the origin the token was requested from.
	AuthorizedParty string `json:"azp,omitempty"`

	OrganizationID          string   `json:"org_id,omitempty"`
	OrganizationSlug        string   `json:"org_slug,omitempty"`
	OrganizationRole        string   `json:"org_role,omitempty"`
	OrganizationPermissions []string `json:"org_permissions,omitempty"`
}

// UserID returns the token's subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// Expiry returns the token's expiration time, or the zero time when the
// token carries no exp claim.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TimeToLive returns how long the token remains usable from now, minus
// leeway. Tokens without an exp claim and already-expired tokens return 0.
func (c *Claims) TimeToLive(now time.Time, leeway time.Duration) time.Duration {
	expiry := c.Expiry()
	if expiry.IsZero() {
		return 0
	}
	ttl := expiry.Sub(now) - leeway
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Parse decodes the claims of raw without verifying its signature.
func Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	return claims, nil
}
