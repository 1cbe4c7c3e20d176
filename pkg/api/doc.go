// Package api defines the wire types exchanged with the Clerk Frontend API.
//
// # Overview
//
// Every Frontend API response arrives wrapped in an envelope that carries the
// requested payload alongside an optional refreshed Client object:
//
//	{
//	    "response": { ... },
//	    "client": { ... } | null
//	}
//
// The types in this package mirror that wire format field for field. They are
// plain data carriers with JSON tags and no behavior beyond small convenience
// accessors; all protocol logic lives in pkg/fapi and all state handling in
// pkg/clerk.
//
// # Key Types
//
// Client is the root resource: the device-scoped container holding the sign-in
// attempt, sign-up attempt, and all sessions known to this device. Session,
// User, and Organization hang off it:
//
//	client.SessionByID(client.LastActiveSessionID)
//	session.User.MembershipByOrganizationID("org_123")
//
// Environment carries instance-wide settings (auth configuration, display
// configuration, organization settings). Token is the minimal JWT carrier
// returned by the token endpoints.
//
// Timestamps are Unix epoch milliseconds throughout, matching the wire format.
// Metadata objects with instance-defined shapes are kept as json.RawMessage so
// callers can decode them into their own types.
//
// # Related Packages
//
//   - pkg/fapi: HTTP client that produces and consumes these types
//   - pkg/clerk: state coordinator built on top of them
package api
