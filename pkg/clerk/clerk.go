package clerk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
	"github.com/platinummonkey/clerk-fapi-go/pkg/config"
	"github.com/platinummonkey/clerk-fapi-go/pkg/fapi"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/store"
	"github.com/platinummonkey/clerk-fapi-go/pkg/tokencache"
)

// persistTimeout bounds persistence writes triggered by piggybacked client
// updates, which carry no caller context.
const persistTimeout = 5 * time.Second

// Clerk coordinates the Frontend API client, the derived session state, the
// persistence store, and the listener registry. It is safe for concurrent
// use.
type Clerk struct {
	cfg       *config.Config
	store     store.Store
	apiClient *fapi.Client
	state     *state
	registry  *listenerRegistry
	tokens    *tokencache.Cache
	logger    *observability.Logger
	metrics   *observability.Metrics

	loadFlight  singleflight.Group
	tokenFlight singleflight.Group

	// setActiveMu serializes SetActive so concurrent activations cannot
	// interleave their staging and touch steps.
	setActiveMu sync.Mutex
}

// Option customizes a Clerk instance.
type Option func(*clerkOptions)

type clerkOptions struct {
	store      store.Store
	logger     *observability.Logger
	metrics    *observability.Metrics
	httpClient *http.Client
}

// WithStore replaces the default in-memory persistence store.
func WithStore(s store.Store) Option {
	return func(o *clerkOptions) { o.store = s }
}

// WithLogger replaces the default stderr logger.
func WithLogger(logger *observability.Logger) Option {
	return func(o *clerkOptions) { o.logger = logger }
}

// WithMetrics enables Prometheus instrumentation across the SDK.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *clerkOptions) { o.metrics = metrics }
}

// WithHTTPClient replaces the HTTP client used for Frontend API calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clerkOptions) { o.httpClient = httpClient }
}

// New builds a coordinator for the instance cfg points at and registers it as
// the receiver for piggybacked client updates. Without WithStore, state lives
// in memory and is lost when the process exits.
func New(cfg *config.Config, opts ...Option) (*Clerk, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := clerkOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)
	}

	base := o.store
	if base == nil {
		base = store.NewMemoryStore()
	}
	st := store.WithPrefix(base, cfg.StoreKeyPrefix)
	if o.metrics != nil {
		st = store.WithMetrics(st, o.metrics, storeBackend(base))
	}

	apiClient, err := fapi.NewClient(cfg, st,
		fapi.WithLogger(o.logger),
		fapi.WithMetrics(o.metrics),
		fapi.WithHTTPClient(o.httpClient),
	)
	if err != nil {
		return nil, err
	}

	c := &Clerk{
		cfg:       cfg,
		store:     st,
		apiClient: apiClient,
		state:     newState(o.logger),
		registry:  newListenerRegistry(o.logger, o.metrics),
		tokens:    tokencache.New(cfg.TokenCacheSize, cfg.TokenLeeway, o.metrics),
		logger:    o.logger,
		metrics:   o.metrics,
	}
	apiClient.SetUpdateHandler(c)
	return c, nil
}

func storeBackend(s store.Store) string {
	switch s.(type) {
	case *store.MemoryStore:
		return "memory"
	case *store.FileStore:
		return "file"
	case *store.RedisStore:
		return "redis"
	case *store.SQLStore:
		return "sql"
	default:
		return "custom"
	}
}

// API returns the underlying Frontend API client for direct endpoint access.
// Responses obtained through it still feed the coordinator's state via the
// piggyback mechanism.
func (c *Clerk) API() *fapi.Client {
	return c.apiClient
}

// Config returns the configuration this instance was built with.
func (c *Clerk) Config() *config.Config {
	return c.cfg
}

// LoadOptions controls Load.
type LoadOptions struct {
	// PreferCache serves environment and client from the persistence store
	// when present, skipping the network for resources already cached.
	PreferCache bool
}

// LoadResult reports where each resource came from.
type LoadResult struct {
	EnvironmentFromCache bool
	ClientFromCache      bool
}

// Load fetches the environment and client, derives the session state, and
// marks the instance loaded. Concurrent Loads with the same options share a
// single round of fetches. Load may be called again later to refresh both
// resources; loaded never reverts.
func (c *Clerk) Load(ctx context.Context, opts LoadOptions) (LoadResult, error) {
	key := fmt.Sprintf("load:prefer_cache=%t", opts.PreferCache)
	v, err, _ := c.loadFlight.Do(key, func() (interface{}, error) {
		return c.load(ctx, opts)
	})
	if err != nil {
		return LoadResult{}, err
	}
	return v.(LoadResult), nil
}

func (c *Clerk) load(ctx context.Context, opts LoadOptions) (LoadResult, error) {
	var result LoadResult

	if err := c.bootstrapDevBrowser(ctx); err != nil {
		return result, err
	}

	var (
		environment *api.Environment
		client      *api.Client
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		env, fromCache, err := c.loadEnvironment(gctx, opts.PreferCache)
		if err != nil {
			return err
		}
		environment = env
		result.EnvironmentFromCache = fromCache
		return nil
	})
	g.Go(func() error {
		cl, fromCache, err := c.loadClient(gctx, opts.PreferCache)
		if err != nil {
			return err
		}
		client = cl
		result.ClientFromCache = fromCache
		return nil
	})
	if err := g.Wait(); err != nil {
		return result, err
	}

	snap := c.state.setLoaded(environment, client)
	c.observeUpdate("load", snap)

	// Persistence failures surface to the caller but never roll back the
	// in-memory state, and listeners still hear about the update.
	var persistErr error
	if !result.EnvironmentFromCache {
		if err := c.persist(ctx, store.KeyEnvironment, environment); err != nil {
			persistErr = err
		}
	}
	if !result.ClientFromCache {
		if err := c.persist(ctx, store.KeyClient, client); err != nil {
			persistErr = err
		}
	}

	c.registry.notify(snap)
	return result, persistErr
}

// bootstrapDevBrowser mints a dev browser token on development instances
// that have no captured authorization value yet. The token arrives via the
// Authorization response header and lands in the store through the usual
// capture path. Production instances skip this.
func (c *Clerk) bootstrapDevBrowser(ctx context.Context) error {
	if !c.cfg.IsDevelopmentInstance() {
		return nil
	}

	_, err := c.store.Get(ctx, store.KeyAuthorization)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		c.logger.WithError(err).Warn("Failed to read stored authorization, requesting a fresh dev browser token")
	}

	if err := c.apiClient.CreateDevBrowser(ctx); err != nil {
		return &LoadError{Stage: LoadStageDevBrowser, Err: err}
	}
	return nil
}

func (c *Clerk) loadEnvironment(ctx context.Context, preferCache bool) (*api.Environment, bool, error) {
	if preferCache {
		var cached api.Environment
		err := store.GetJSON(ctx, c.store, store.KeyEnvironment, &cached)
		switch {
		case err == nil:
			return &cached, true, nil
		case !errors.Is(err, store.ErrNotFound):
			c.logger.WithError(err).Warn("Failed to read cached environment, falling back to the API")
		}
	}

	environment, err := c.apiClient.GetEnvironment(ctx)
	if err != nil {
		return nil, false, &LoadError{Stage: LoadStageEnvironment, Err: err}
	}
	return environment, false, nil
}

func (c *Clerk) loadClient(ctx context.Context, preferCache bool) (*api.Client, bool, error) {
	if preferCache {
		var cached api.Client
		err := store.GetJSON(ctx, c.store, store.KeyClient, &cached)
		switch {
		case err == nil:
			return &cached, true, nil
		case !errors.Is(err, store.ErrNotFound):
			c.logger.WithError(err).Warn("Failed to read cached client, falling back to the API")
		}
	}

	client, err := c.apiClient.GetClient(ctx)
	if errors.Is(err, fapi.ErrNoClient) {
		c.logger.Debug("No client exists for this device yet, creating one")
		client, err = c.apiClient.CreateClient(ctx)
	}
	if err != nil {
		return nil, false, &LoadError{Stage: LoadStageClient, Err: err}
	}
	return client, false, nil
}

// SetLoaded installs an environment and client obtained out of band, for
// hosts that fetched them through their own transport. Listeners observe the
// resulting state exactly as they would after Load.
func (c *Clerk) SetLoaded(ctx context.Context, environment *api.Environment, client *api.Client) error {
	snap := c.state.setLoaded(environment, client)
	c.observeUpdate("set_loaded", snap)

	var persistErr error
	if err := c.persist(ctx, store.KeyEnvironment, environment); err != nil {
		persistErr = err
	}
	if err := c.persist(ctx, store.KeyClient, client); err != nil {
		persistErr = err
	}

	c.registry.notify(snap)
	return persistErr
}

// OnClientUpdate accepts a piggybacked client snapshot from a Frontend API
// response. It runs synchronously on the goroutine that performed the
// request, so by the time an endpoint method returns, the state already
// reflects its response.
func (c *Clerk) OnClientUpdate(client *api.Client) {
	if client == nil {
		return
	}

	snap := c.state.setClient(client)
	c.observeUpdate("piggyback", snap)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.persist(ctx, store.KeyClient, client); err != nil {
		c.logger.WithError(err).Warn("Failed to persist piggybacked client update")
	}

	c.registry.notify(snap)
}

func (c *Clerk) persist(ctx context.Context, key string, v interface{}) error {
	if err := store.SetJSON(ctx, c.store, key, v); err != nil {
		return &PersistenceError{Key: key, Err: err}
	}
	return nil
}

func (c *Clerk) observeUpdate(source string, snap stateSnapshot) {
	if c.metrics == nil {
		return
	}
	c.metrics.StateUpdatesTotal.WithLabelValues(source).Inc()
	c.metrics.SessionsActive.Set(float64(len(snap.client.ActiveSessions())))
}

// Loaded reports whether environment and client have both been obtained.
func (c *Clerk) Loaded() bool {
	return c.state.isLoaded()
}

// Environment returns the instance environment. ErrNotLoaded before Load.
func (c *Clerk) Environment() (*api.Environment, error) {
	snap := c.state.snapshot()
	if !snap.loaded {
		return nil, ErrNotLoaded
	}
	return snap.environment, nil
}

// Client returns the current client snapshot. ErrNotLoaded before Load.
func (c *Clerk) Client() (*api.Client, error) {
	snap := c.state.snapshot()
	if !snap.loaded {
		return nil, ErrNotLoaded
	}
	return snap.client, nil
}

// Session returns the active session, or nil when no session is active.
// ErrNotLoaded before Load.
func (c *Clerk) Session() (*api.Session, error) {
	snap := c.state.snapshot()
	if !snap.loaded {
		return nil, ErrNotLoaded
	}
	return snap.session, nil
}

// User returns the active session's user, or nil when signed out.
// ErrNotLoaded before Load.
func (c *Clerk) User() (*api.User, error) {
	snap := c.state.snapshot()
	if !snap.loaded {
		return nil, ErrNotLoaded
	}
	return snap.user, nil
}

// Organization returns the active organization, or nil when the session has
// none. ErrNotLoaded before Load.
func (c *Clerk) Organization() (*api.Organization, error) {
	snap := c.state.snapshot()
	if !snap.loaded {
		return nil, ErrNotLoaded
	}
	return snap.organization, nil
}

// AuthorizationHeader returns the captured authorization value, or the empty
// string when none has been captured yet. Hosts that route requests through
// their own transport read it here.
func (c *Clerk) AuthorizationHeader(ctx context.Context) (string, error) {
	if !c.state.isLoaded() {
		return "", ErrNotLoaded
	}

	var header string
	err := store.GetJSON(ctx, c.store, store.KeyAuthorization, &header)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return header, nil
}

// SetAuthorizationHeader replaces the captured authorization value. An empty
// header removes it.
func (c *Clerk) SetAuthorizationHeader(ctx context.Context, header string) error {
	if !c.state.isLoaded() {
		return ErrNotLoaded
	}
	if header == "" {
		if err := c.store.Delete(ctx, store.KeyAuthorization); err != nil {
			return &PersistenceError{Key: store.KeyAuthorization, Err: err}
		}
		return nil
	}
	return c.persist(ctx, store.KeyAuthorization, header)
}

// RefreshEnvironment re-fetches the instance environment and replaces the
// cached snapshot. The derived session state is unaffected.
func (c *Clerk) RefreshEnvironment(ctx context.Context) error {
	if !c.state.isLoaded() {
		return ErrNotLoaded
	}

	environment, err := c.apiClient.GetEnvironment(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh environment: %w", err)
	}
	c.state.setEnvironment(environment)
	return c.persist(ctx, store.KeyEnvironment, environment)
}

// GetTokenParams scopes a token request.
type GetTokenParams struct {
	// OrganizationID scopes the minted token to an organization. Ignored
	// when Template is set.
	OrganizationID string

	// Template names a JWT template configured on the instance.
	Template string
}

// GetToken returns a session JWT for the active session, minting one only
// when the cache holds no fresh token for the session, organization, and
// template combination. A nil token with a nil error means there is no
// active session or user to mint for. Concurrent calls for the same
// combination share one mint.
func (c *Clerk) GetToken(ctx context.Context, params GetTokenParams) (*api.Token, error) {
	snap := c.state.snapshot()
	if !snap.loaded {
		return nil, ErrNotLoaded
	}
	if snap.session == nil || snap.user == nil {
		return nil, nil
	}

	key := tokencache.Key(snap.session.ID, params.OrganizationID, params.Template)
	if token, ok := c.tokens.Get(key); ok {
		return token, nil
	}

	sessionID := snap.session.ID
	v, err, _ := c.tokenFlight.Do(key, func() (interface{}, error) {
		token, err := c.mintToken(ctx, sessionID, params)
		if err != nil {
			return nil, err
		}
		c.tokens.Put(key, token)
		return token, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.Token), nil
}

func (c *Clerk) mintToken(ctx context.Context, sessionID string, params GetTokenParams) (*api.Token, error) {
	if params.Template != "" {
		token, err := c.apiClient.CreateSessionTokenWithTemplate(ctx, sessionID, params.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to mint templated session token: %w", err)
		}
		return token, nil
	}

	token, err := c.apiClient.CreateSessionToken(ctx, sessionID, params.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint session token: %w", err)
	}
	return token, nil
}

// SignOut removes the identified session, or every session on the client
// when sessionID is empty. The device cookie survives an all-session
// sign-out, so the next sign-in reuses the same client. State changes arrive
// through the piggybacked client on the response.
func (c *Clerk) SignOut(ctx context.Context, sessionID string) error {
	if !c.state.isLoaded() {
		return ErrNotLoaded
	}

	if sessionID == "" {
		if err := c.apiClient.RemoveClientSessions(ctx); err != nil {
			return fmt.Errorf("failed to remove client sessions: %w", err)
		}
		c.tokens.Purge()
		return nil
	}

	if _, err := c.apiClient.RemoveSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	c.tokens.PurgeSession(sessionID)
	return nil
}

// SetActiveParams selects the session and organization to activate.
type SetActiveParams struct {
	// SessionID selects the session to activate. Empty means the currently
	// active session.
	SessionID string

	// Organization is an organization ID (org_ prefix) or slug to activate
	// on the session. Empty leaves the organization untouched.
	Organization string
}

// SetActive switches the active session and/or organization. The resolved
// organization is staged for the derivation triggered by the touch response,
// so readers never observe the new organization before the server has
// acknowledged it. Calls are serialized.
func (c *Clerk) SetActive(ctx context.Context, params SetActiveParams) error {
	c.setActiveMu.Lock()
	defer c.setActiveMu.Unlock()

	snap := c.state.snapshot()
	if !snap.loaded {
		return ErrNotLoaded
	}

	target := snap.session
	if params.SessionID != "" {
		target = snap.client.SessionByID(params.SessionID)
		if target == nil {
			return fmt.Errorf("%w: %q", ErrSessionNotFound, params.SessionID)
		}
	}
	if target == nil {
		return ErrSessionNotFound
	}

	var organizationID string
	if params.Organization != "" {
		id, err := c.resolveOrganization(ctx, target, params.Organization)
		if err != nil {
			return err
		}
		organizationID = id
		c.state.stageTargetOrganization(&organizationID)
	}

	if _, err := c.apiClient.TouchSession(ctx, target.ID, organizationID); err != nil {
		// The touch never reached the server; drop the staged organization.
		if organizationID != "" {
			c.state.stageTargetOrganization(nil)
		}
		return fmt.Errorf("failed to touch session: %w", err)
	}

	// Previously minted tokens for this session may carry the wrong
	// organization context.
	c.tokens.PurgeSession(target.ID)
	return nil
}

// resolveOrganization maps an organization ID or slug to the ID to activate,
// consulting up to three sources in order: the memberships embedded in the
// target session's user, a freshly fetched user record, and finally the
// membership listing endpoint. A source that errors counts as a miss.
func (c *Clerk) resolveOrganization(ctx context.Context, session *api.Session, identifier string) (string, error) {
	if m := session.User.MembershipMatching(identifier); m != nil {
		return m.Organization.ID, nil
	}

	user, err := c.apiClient.GetUser(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to refresh user while resolving organization")
	} else if m := user.MembershipMatching(identifier); m != nil {
		return m.Organization.ID, nil
	}

	memberships, err := c.apiClient.GetOrganizationMemberships(ctx, fapi.MembershipListParams{})
	if err != nil {
		c.logger.WithError(err).Debug("Failed to list organization memberships while resolving organization")
	} else {
		for i := range memberships.Data {
			if memberships.Data[i].MatchesIdentifier(identifier) {
				return memberships.Data[i].Organization.ID, nil
			}
		}
	}

	return "", &OrganizationNotFoundError{Target: identifier}
}

// AddListener registers fn for state notifications and returns a handle that
// removes it. When state is already loaded, fn is invoked once immediately
// with the current snapshot before this call returns. Listeners run
// synchronously on the goroutine that accepted the update; long work and
// further SDK calls belong on another goroutine.
func (c *Clerk) AddListener(fn Listener) *ListenerHandle {
	handle := c.registry.add(fn)

	snap := c.state.snapshot()
	if snap.loaded {
		c.registry.invoke(registeredListener{id: handle.id, fn: fn}, snap)
	} else {
		c.logger.Warn("Listener added before load, first notification deferred")
	}
	return handle
}
