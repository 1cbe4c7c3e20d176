// Package middleware provides HTTP middleware for verifying Clerk session
// tokens on inbound requests.
//
// # Overview
//
// This package lets Go backends accept the session JWTs a Clerk frontend
// sends with its requests. Tokens are verified against the instance's
// signing keys and the resulting claims are attached to the request context.
//
// # Middleware Components
//
// SessionMiddleware: Bearer token verification
//
//	m := middleware.NewSessionMiddleware(verifier, false)
//	router.Use(m.Handler)
//	// Extracts the Bearer token, verifies it, adds claims to the request
//
// Organization guards: active organization and role checks
//
//	router.Use(middleware.RequireOrganization())
//	router.Use(middleware.RequireOrganizationRole("org:admin"))
//
// # Related Packages
//
//   - pkg/verify: Token verification against the instance's JWKS
//   - pkg/contextkeys: Context keys for verified claims
package middleware
