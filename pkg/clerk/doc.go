// Package clerk is the high-level entry point of the SDK: a session
// coordinator that keeps a consistent, observable view of the signed-in
// state while requests fly against the Clerk Frontend API.
//
// # Overview
//
// A Clerk instance owns four cooperating parts. The Frontend API client
// (pkg/fapi) performs requests and hands every piggybacked Client snapshot to
// the coordinator through OnClientUpdate. The state store ingests each
// snapshot under a single write lock and derives the active session, user,
// and organization from it, so readers never observe a half-applied update.
// The persistence store (pkg/store) saves the environment, client, and
// captured authorization header between runs. The listener registry fans
// each accepted update out to subscribers, in registration order, with
// panics isolated per listener.
//
// Typical use:
//
//	cfg := config.New("pk_test_...")
//	c, err := clerk.New(cfg, clerk.WithStore(fileStore))
//	if err != nil { ... }
//	if _, err := c.Load(ctx, clerk.LoadOptions{PreferCache: true}); err != nil { ... }
//
//	handle := c.AddListener(func(client *api.Client, session *api.Session, user *api.User, org *api.Organization) {
//		// runs once immediately, then after every accepted update
//	})
//	defer handle.Remove()
//
//	token, err := c.GetToken(ctx, clerk.GetTokenParams{})
//
// Until Load completes, state accessors and session operations return
// ErrNotLoaded. After it, Session, User, and Organization may be nil, which
// simply means nobody is signed in or no organization is active.
//
// Organization switching with SetActive resolves an ID or slug against the
// user's memberships (refreshing them from the API when needed), stages the
// result, and touches the session; the state flips only when the server's
// piggybacked client confirms the switch.
//
// # Key Types
//
//   - Clerk: the coordinator; construct with New
//   - Listener, ListenerHandle: state change subscriptions
//   - LoadOptions, LoadResult: cache-preferring initialization
//   - GetTokenParams, SetActiveParams: session operations
//   - LoadError, OrganizationNotFoundError, PersistenceError: typed failures
//
// # Related Packages
//
//   - pkg/fapi: the transport this coordinator drives
//   - pkg/store: pluggable persistence backends
//   - pkg/tokencache: the minted-token cache behind GetToken
//   - pkg/verify: local verification of minted session tokens
package clerk
