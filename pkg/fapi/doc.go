// Package fapi is a low-level HTTP client for the Clerk Frontend API.
//
// # Overview
//
// Every request carries the native-client markers the Frontend API expects
// (the _is_native query parameter plus the x-mobile and x-no-origin headers),
// and the Authorization header is transparently replayed from and captured
// back into a store.Store. On development instances that captured value is
// the dev browser token, so persisting it is what keeps a device recognized
// across restarts.
//
// Responses come in two shapes. Client-scoped resources (sign-ins, sign-ups,
// sessions, the current user) are wrapped in an envelope that piggybacks the
// updated Client object; the client forwards that piggyback to the registered
// ClientUpdateHandler so callers always observe the freshest client state.
// The environment and session token endpoints respond with the bare payload
// and are decoded directly.
//
// # Key Types
//
//   - Client: the API client; construct with NewClient
//   - ClientUpdateHandler: receives piggybacked Client updates
//   - APIError: decoded Frontend API error responses
//
// # Related Packages
//
//   - pkg/api: wire models decoded by this package
//   - pkg/store: persistence for the Authorization header
//   - pkg/clerk: the high-level coordinator built on this client
package fapi
