package clerk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
	"github.com/platinummonkey/clerk-fapi-go/pkg/config"
	"github.com/platinummonkey/clerk-fapi-go/pkg/fapi"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/store"
	"github.com/platinummonkey/clerk-fapi-go/pkg/tokencache"
)

// Publishable keys encoding clerk.example.com$, one per instance type. The
// base URL is overridden to point at the test server either way.
const (
	testPublishableKey    = "pk_live_Y2xlcmsuZXhhbXBsZS5jb20k"
	testDevPublishableKey = "pk_test_Y2xlcmsuZXhhbXBsZS5jb20k"
)

func testEnvironment() *api.Environment {
	return &api.Environment{
		AuthConfig: api.AuthConfig{
			Object:       "auth_config",
			ID:           "aac_test",
			EmailAddress: "on",
			Password:     "required",
		},
		DisplayConfig: api.DisplayConfig{
			Object:                  "display_config",
			ID:                      "display_config_test",
			InstanceEnvironmentType: "production",
			ApplicationName:         "Example App",
		},
		OrganizationSettings: api.OrganizationSettings{
			Enabled:               true,
			MaxAllowedMemberships: 5,
		},
	}
}

func testMembership(orgID, slug string) api.OrganizationMembership {
	return api.OrganizationMembership{
		Object: "organization_membership",
		ID:     "orgmem_" + orgID,
		Role:   "org:member",
		Organization: api.Organization{
			Object: "organization",
			ID:     orgID,
			Name:   slug,
			Slug:   slug,
		},
	}
}

func testUser(id string, memberships ...api.OrganizationMembership) *api.User {
	return &api.User{
		Object:                  "user",
		ID:                      id,
		FirstName:               "Ada",
		LastName:                "Lovelace",
		OrganizationMemberships: memberships,
	}
}

func testSession(id string, user *api.User, activeOrgID string) api.Session {
	return api.Session{
		Object:                   "session",
		ID:                       id,
		Status:                   api.SessionStatusActive,
		User:                     user,
		LastActiveOrganizationID: activeOrgID,
	}
}

func testClient(lastActiveSessionID string, sessions ...api.Session) *api.Client {
	return &api.Client{
		Object:              "client",
		ID:                  "client_abc123",
		Sessions:            sessions,
		LastActiveSessionID: lastActiveSessionID,
	}
}

// mintTestJWT signs a throwaway session token whose claims parse cleanly.
func mintTestJWT(t *testing.T, sessionID string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sid": sessionID,
		"sub": "user_1",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(expiresIn).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-secret"))
	require.NoError(t, err)
	return raw
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, response interface{}, client *api.Client) {
	t.Helper()
	writeJSON(t, w, map[string]interface{}{"response": response, "client": client})
}

type callCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCallCounter() *callCounter {
	return &callCounter{counts: map[string]int{}}
}

func (c *callCounter) inc(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name]++
}

func (c *callCounter) get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// fapiRouter serves the minimum surface Load needs: the raw environment and
// the enveloped client.
func fapiRouter(t *testing.T, counter *callCounter, client *api.Client) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/v1/environment", func(w http.ResponseWriter, r *http.Request) {
		counter.inc("environment")
		writeJSON(t, w, testEnvironment())
	}).Methods(http.MethodGet)
	router.HandleFunc("/v1/client", func(w http.ResponseWriter, r *http.Request) {
		counter.inc("get_client")
		writeEnvelope(t, w, client, nil)
	}).Methods(http.MethodGet)
	return router
}

func newTestClerk(t *testing.T, key string, router *mux.Router, opts ...Option) (*Clerk, *store.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	cfg := config.New(key)
	cfg.BaseURL = server.URL + "/v1"

	memory := store.NewMemoryStore()
	all := append([]Option{WithLogger(observability.Nop()), WithStore(memory)}, opts...)
	c, err := New(cfg, all...)
	require.NoError(t, err)
	return c, memory
}

func loadedClerk(t *testing.T, counter *callCounter, client *api.Client, configure func(*mux.Router)) *Clerk {
	t.Helper()
	router := fapiRouter(t, counter, client)
	if configure != nil {
		configure(router)
	}
	c, _ := newTestClerk(t, testPublishableKey, router)
	_, err := c.Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	return c
}

// readOnlyStore serves reads from inner but fails every write.
type readOnlyStore struct {
	inner store.Store
	err   error
}

func (s *readOnlyStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return s.inner.Get(ctx, key)
}

func (s *readOnlyStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	return s.err
}

func (s *readOnlyStore) Delete(ctx context.Context, key string) error {
	return s.err
}

func TestNew(t *testing.T) {
	t.Run("requires a config", func(t *testing.T) {
		_, err := New(nil)
		require.Error(t, err)
	})

	t.Run("rejects an invalid publishable key", func(t *testing.T) {
		_, err := New(config.New("not-a-key"), WithLogger(observability.Nop()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("starts unloaded", func(t *testing.T) {
		c, err := New(config.New(testPublishableKey), WithLogger(observability.Nop()))
		require.NoError(t, err)
		assert.False(t, c.Loaded())

		_, err = c.Session()
		assert.ErrorIs(t, err, ErrNotLoaded)
	})

	t.Run("exposes the frontend API client", func(t *testing.T) {
		c, err := New(config.New(testPublishableKey), WithLogger(observability.Nop()))
		require.NoError(t, err)
		require.NotNil(t, c.API())
		assert.Equal(t, "https://clerk.example.com/v1", c.API().BaseURL())
		assert.Same(t, c.Config(), c.cfg)
	})
}

func TestLoad_FetchesBothResources(t *testing.T) {
	counter := newCallCounter()
	router := fapiRouter(t, counter, orgStateClient("org_a"))
	c, memory := newTestClerk(t, testPublishableKey, router)

	ctx := context.Background()
	result, err := c.Load(ctx, LoadOptions{})
	require.NoError(t, err)
	assert.False(t, result.EnvironmentFromCache)
	assert.False(t, result.ClientFromCache)
	assert.Equal(t, 1, counter.get("environment"))
	assert.Equal(t, 1, counter.get("get_client"))
	assert.True(t, c.Loaded())

	session, err := c.Session()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "sess_1", session.ID)

	user, err := c.User()
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user_1", user.ID)

	org, err := c.Organization()
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "org_a", org.ID)

	// Both resources were persisted for the next run.
	var storedClient api.Client
	require.NoError(t, store.GetJSON(ctx, memory, store.KeyClient, &storedClient))
	assert.Equal(t, "client_abc123", storedClient.ID)

	var storedEnv api.Environment
	require.NoError(t, store.GetJSON(ctx, memory, store.KeyEnvironment, &storedEnv))
	assert.Equal(t, "Example App", storedEnv.DisplayConfig.ApplicationName)
}

func TestLoad_PrefersCache(t *testing.T) {
	counter := newCallCounter()
	router := fapiRouter(t, counter, testClient(""))
	c, memory := newTestClerk(t, testPublishableKey, router)

	ctx := context.Background()
	require.NoError(t, store.SetJSON(ctx, memory, store.KeyEnvironment, testEnvironment()))
	require.NoError(t, store.SetJSON(ctx, memory, store.KeyClient, orgStateClient("org_a")))

	result, err := c.Load(ctx, LoadOptions{PreferCache: true})
	require.NoError(t, err)
	assert.True(t, result.EnvironmentFromCache)
	assert.True(t, result.ClientFromCache)
	assert.Zero(t, counter.get("environment"))
	assert.Zero(t, counter.get("get_client"))

	org, err := c.Organization()
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "org_a", org.ID)
}

func TestLoad_CorruptCacheFallsBack(t *testing.T) {
	counter := newCallCounter()
	router := fapiRouter(t, counter, orgStateClient("org_a"))
	c, memory := newTestClerk(t, testPublishableKey, router)

	ctx := context.Background()
	require.NoError(t, store.SetJSON(ctx, memory, store.KeyEnvironment, testEnvironment()))
	require.NoError(t, memory.Set(ctx, store.KeyClient, json.RawMessage(`{"id":`)))

	result, err := c.Load(ctx, LoadOptions{PreferCache: true})
	require.NoError(t, err)
	assert.True(t, result.EnvironmentFromCache)
	assert.False(t, result.ClientFromCache)
	assert.Zero(t, counter.get("environment"))
	assert.Equal(t, 1, counter.get("get_client"))
}

func TestLoad_CreatesClientWhenNoneExists(t *testing.T) {
	counter := newCallCounter()
	router := mux.NewRouter()
	router.HandleFunc("/v1/environment", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, testEnvironment())
	}).Methods(http.MethodGet)
	router.HandleFunc("/v1/client", func(w http.ResponseWriter, r *http.Request) {
		counter.inc("get_client")
		writeEnvelope(t, w, nil, nil)
	}).Methods(http.MethodGet)
	router.HandleFunc("/v1/client", func(w http.ResponseWriter, r *http.Request) {
		counter.inc("create_client")
		writeEnvelope(t, w, testClient(""), nil)
	}).Methods(http.MethodPost)

	c, _ := newTestClerk(t, testPublishableKey, router)
	_, err := c.Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, counter.get("get_client"))
	assert.Equal(t, 1, counter.get("create_client"))

	client, err := c.Client()
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "client_abc123", client.ID)
}

func TestLoad_DevBrowserBootstrap(t *testing.T) {
	counter := newCallCounter()
	router := fapiRouter(t, counter, orgStateClient("org_a"))
	router.HandleFunc("/v1/dev_browser", func(w http.ResponseWriter, r *http.Request) {
		counter.inc("dev_browser")
		w.Header().Set("Authorization", "dev-browser-jwt")
		writeJSON(t, w, map[string]string{"id": "devb_123"})
	}).Methods(http.MethodPost)

	c, memory := newTestClerk(t, testDevPublishableKey, router)

	ctx := context.Background()
	_, err := c.Load(ctx, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, counter.get("dev_browser"))

	// The minted token was captured off the response header and persisted.
	var header string
	require.NoError(t, store.GetJSON(ctx, memory, store.KeyAuthorization, &header))
	assert.Equal(t, "dev-browser-jwt", header)

	// A later load finds the captured token and skips the bootstrap.
	_, err = c.Load(ctx, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, counter.get("dev_browser"))
}

func TestLoad_StageErrors(t *testing.T) {
	t.Run("environment failure", func(t *testing.T) {
		router := mux.NewRouter()
		router.HandleFunc("/v1/environment", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/client", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(t, w, testClient(""), nil)
		}).Methods(http.MethodGet)

		c, _ := newTestClerk(t, testPublishableKey, router)
		_, err := c.Load(context.Background(), LoadOptions{})
		require.Error(t, err)

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, LoadStageEnvironment, loadErr.Stage)
		assert.False(t, c.Loaded())
	})

	t.Run("client failure", func(t *testing.T) {
		router := mux.NewRouter()
		router.HandleFunc("/v1/environment", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, testEnvironment())
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/client", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}).Methods(http.MethodGet)

		c, _ := newTestClerk(t, testPublishableKey, router)
		_, err := c.Load(context.Background(), LoadOptions{})
		require.Error(t, err)

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, LoadStageClient, loadErr.Stage)
		assert.False(t, c.Loaded())
	})

	t.Run("dev browser failure", func(t *testing.T) {
		router := mux.NewRouter()
		router.HandleFunc("/v1/dev_browser", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}).Methods(http.MethodPost)

		c, _ := newTestClerk(t, testDevPublishableKey, router)
		_, err := c.Load(context.Background(), LoadOptions{})
		require.Error(t, err)

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, LoadStageDevBrowser, loadErr.Stage)
		assert.False(t, c.Loaded())
	})
}

func TestLoad_PersistFailureKeepsMemoryState(t *testing.T) {
	counter := newCallCounter()
	router := fapiRouter(t, counter, orgStateClient("org_a"))
	writeErr := errors.New("disk full")
	c, _ := newTestClerk(t, testPublishableKey, router,
		WithStore(&readOnlyStore{inner: store.NewMemoryStore(), err: writeErr}))

	notified := 0
	c.AddListener(func(*api.Client, *api.Session, *api.User, *api.Organization) { notified++ })

	_, err := c.Load(context.Background(), LoadOptions{})
	require.Error(t, err)

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.ErrorIs(t, err, writeErr)

	// The in-memory state is authoritative despite the failed write.
	assert.True(t, c.Loaded())
	session, sessErr := c.Session()
	require.NoError(t, sessErr)
	require.NotNil(t, session)
	assert.Equal(t, "sess_1", session.ID)
	assert.Equal(t, 1, notified)
}

func TestLoad_SharesConcurrentRounds(t *testing.T) {
	var envCalls int32
	release := make(chan struct{})
	router := mux.NewRouter()
	router.HandleFunc("/v1/environment", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&envCalls, 1)
		<-release
		writeJSON(t, w, testEnvironment())
	}).Methods(http.MethodGet)
	router.HandleFunc("/v1/client", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, orgStateClient("org_a"), nil)
	}).Methods(http.MethodGet)

	c, _ := newTestClerk(t, testPublishableKey, router)

	const loaders = 5
	var started, done sync.WaitGroup
	started.Add(loaders)
	done.Add(loaders)
	errs := make([]error, loaders)
	for i := 0; i < loaders; i++ {
		i := i
		go func() {
			defer done.Done()
			started.Done()
			_, errs[i] = c.Load(context.Background(), LoadOptions{})
		}()
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	for i := 0; i < loaders; i++ {
		assert.NoError(t, errs[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&envCalls))
	assert.True(t, c.Loaded())
}

func TestNotLoadedGuards(t *testing.T) {
	c, err := New(config.New(testPublishableKey), WithLogger(observability.Nop()))
	require.NoError(t, err)
	ctx := context.Background()

	checks := map[string]func() error{
		"Environment":            func() error { _, err := c.Environment(); return err },
		"Client":                 func() error { _, err := c.Client(); return err },
		"Session":                func() error { _, err := c.Session(); return err },
		"User":                   func() error { _, err := c.User(); return err },
		"Organization":           func() error { _, err := c.Organization(); return err },
		"GetToken":               func() error { _, err := c.GetToken(ctx, GetTokenParams{}); return err },
		"SignOut":                func() error { return c.SignOut(ctx, "") },
		"SetActive":              func() error { return c.SetActive(ctx, SetActiveParams{SessionID: "sess_1"}) },
		"AuthorizationHeader":    func() error { _, err := c.AuthorizationHeader(ctx); return err },
		"SetAuthorizationHeader": func() error { return c.SetAuthorizationHeader(ctx, "value") },
		"RefreshEnvironment":     func() error { return c.RefreshEnvironment(ctx) },
	}
	for name, call := range checks {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), ErrNotLoaded)
		})
	}
}

func TestGetToken(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient("org_a"), func(router *mux.Router) {
		router.HandleFunc("/v1/client/sessions/{sessionID}/tokens", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("mint")
			assert.NoError(t, r.ParseForm())
			if org := r.PostForm.Get("organization_id"); org != "" {
				counter.inc("mint:org=" + org)
			}
			writeJSON(t, w, api.Token{Object: "token", JWT: mintTestJWT(t, mux.Vars(r)["sessionID"], time.Hour)})
		}).Methods(http.MethodPost)
		router.HandleFunc("/v1/client/sessions/{sessionID}/tokens/{template}", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("mint_template:" + mux.Vars(r)["template"])
			writeJSON(t, w, api.Token{Object: "token", JWT: mintTestJWT(t, mux.Vars(r)["sessionID"], time.Hour)})
		}).Methods(http.MethodPost)
	})
	ctx := context.Background()

	t.Run("mints then serves from cache", func(t *testing.T) {
		first, err := c.GetToken(ctx, GetTokenParams{})
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.NotEmpty(t, first.JWT)
		assert.Equal(t, 1, counter.get("mint"))

		second, err := c.GetToken(ctx, GetTokenParams{})
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, first.JWT, second.JWT)
		assert.Equal(t, 1, counter.get("mint"))
	})

	t.Run("organization scope is its own cache entry", func(t *testing.T) {
		token, err := c.GetToken(ctx, GetTokenParams{OrganizationID: "org_b"})
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, 2, counter.get("mint"))
		assert.Equal(t, 1, counter.get("mint:org=org_b"))
	})

	t.Run("template uses the templated endpoint", func(t *testing.T) {
		token, err := c.GetToken(ctx, GetTokenParams{Template: "supabase"})
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, 1, counter.get("mint_template:supabase"))
	})
}

func TestGetToken_NoActiveSession(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, testClient(""), nil)

	token, err := c.GetToken(context.Background(), GetTokenParams{})
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestGetToken_MintFailure(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient("org_a"), func(router *mux.Router) {
		router.HandleFunc("/v1/client/sessions/{sessionID}/tokens", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}).Methods(http.MethodPost)
	})

	token, err := c.GetToken(context.Background(), GetTokenParams{})
	require.Error(t, err)
	assert.Nil(t, token)
	assert.Contains(t, err.Error(), "failed to mint session token")

	var apiErr *fapi.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestSignOut_AllSessions(t *testing.T) {
	counter := newCallCounter()
	emptied := testClient("")
	c := loadedClerk(t, counter, orgStateClient("org_a"), func(router *mux.Router) {
		router.HandleFunc("/v1/client/sessions", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("remove_all")
			writeEnvelope(t, w, nil, emptied)
		}).Methods(http.MethodDelete)
	})
	ctx := context.Background()

	// Seed the token cache so the purge is observable.
	c.tokens.Put(tokencache.Key("sess_1", "", ""), &api.Token{JWT: mintTestJWT(t, "sess_1", time.Hour)})
	require.Equal(t, 1, c.tokens.Len())

	require.NoError(t, c.SignOut(ctx, ""))
	assert.Equal(t, 1, counter.get("remove_all"))
	assert.Zero(t, c.tokens.Len())

	// The piggybacked empty client cleared the derived state.
	session, err := c.Session()
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSignOut_SingleSession(t *testing.T) {
	user := testUser("user_1", testMembership("org_a", "acme"))
	client := testClient("sess_1", testSession("sess_1", user, ""), testSession("sess_2", user, ""))
	after := testClient("sess_2", testSession("sess_2", user, ""))
	removed := testSession("sess_1", nil, "")
	removed.Status = api.SessionStatusRemoved

	counter := newCallCounter()
	c := loadedClerk(t, counter, client, func(router *mux.Router) {
		router.HandleFunc("/v1/client/sessions/{sessionID}/remove", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("remove:" + mux.Vars(r)["sessionID"])
			writeEnvelope(t, w, removed, after)
		}).Methods(http.MethodPost)
	})
	ctx := context.Background()

	c.tokens.Put(tokencache.Key("sess_1", "", ""), &api.Token{JWT: mintTestJWT(t, "sess_1", time.Hour)})
	c.tokens.Put(tokencache.Key("sess_2", "", ""), &api.Token{JWT: mintTestJWT(t, "sess_2", time.Hour)})

	require.NoError(t, c.SignOut(ctx, "sess_1"))
	assert.Equal(t, 1, counter.get("remove:sess_1"))

	// Only the signed-out session's tokens are dropped.
	_, ok := c.tokens.Get(tokencache.Key("sess_1", "", ""))
	assert.False(t, ok)
	_, ok = c.tokens.Get(tokencache.Key("sess_2", "", ""))
	assert.True(t, ok)

	session, err := c.Session()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "sess_2", session.ID)
}

func TestSetActive_SwitchesSession(t *testing.T) {
	user := testUser("user_1")
	client := testClient("sess_1", testSession("sess_1", user, ""), testSession("sess_2", user, ""))

	counter := newCallCounter()
	c := loadedClerk(t, counter, client, func(router *mux.Router) {
		router.HandleFunc("/v1/client/sessions/{sessionID}/touch", func(w http.ResponseWriter, r *http.Request) {
			sessionID := mux.Vars(r)["sessionID"]
			counter.inc("touch:" + sessionID)
			assert.NoError(t, r.ParseForm())
			assert.Empty(t, r.PostForm.Get("active_organization_id"))

			touched := testClient(sessionID, testSession("sess_1", user, ""), testSession("sess_2", user, ""))
			writeEnvelope(t, w, testSession(sessionID, user, ""), touched)
		}).Methods(http.MethodPost)
	})

	require.NoError(t, c.SetActive(context.Background(), SetActiveParams{SessionID: "sess_2"}))
	assert.Equal(t, 1, counter.get("touch:sess_2"))

	session, err := c.Session()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "sess_2", session.ID)
}

func TestSetActive_SessionNotFound(t *testing.T) {
	counter := newCallCounter()

	t.Run("unknown session id", func(t *testing.T) {
		c := loadedClerk(t, counter, orgStateClient(""), nil)
		err := c.SetActive(context.Background(), SetActiveParams{SessionID: "sess_nope"})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("no active session to default to", func(t *testing.T) {
		c := loadedClerk(t, counter, testClient(""), nil)
		err := c.SetActive(context.Background(), SetActiveParams{Organization: "org_a"})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSetActive_OrganizationFromSessionMemberships(t *testing.T) {
	counter := newCallCounter()
	client := orgStateClient("org_a")
	c := loadedClerk(t, counter, client, func(router *mux.Router) {
		router.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("me")
			writeEnvelope(t, w, client.Sessions[0].User, nil)
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/client/sessions/{sessionID}/touch", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("touch")
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "org_b", r.PostForm.Get("active_organization_id"))
			writeEnvelope(t, w, testSession("sess_1", client.Sessions[0].User, "org_b"), orgStateClient("org_b"))
		}).Methods(http.MethodPost)
	})

	// The slug resolves against the memberships already embedded in the
	// session, with no extra requests.
	require.NoError(t, c.SetActive(context.Background(), SetActiveParams{Organization: "globex"}))
	assert.Equal(t, 1, counter.get("touch"))
	assert.Zero(t, counter.get("me"))

	org, err := c.Organization()
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "org_b", org.ID)
}

func TestSetActive_StagedOrganizationBeatsStaleSession(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient(""), func(router *mux.Router) {
		router.HandleFunc("/v1/client/sessions/{sessionID}/touch", func(w http.ResponseWriter, r *http.Request) {
			// The piggybacked session still reports no active organization;
			// the staged target must win this derivation anyway.
			writeEnvelope(t, w, orgStateClient("").Sessions[0], orgStateClient(""))
		}).Methods(http.MethodPost)
	})

	require.NoError(t, c.SetActive(context.Background(), SetActiveParams{Organization: "org_b"}))

	org, err := c.Organization()
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "org_b", org.ID)
}

func TestSetActive_OrganizationFromRefreshedUser(t *testing.T) {
	bare := testUser("user_1")
	client := testClient("sess_1", testSession("sess_1", bare, ""))
	enriched := testUser("user_1", testMembership("org_c", "initech"))

	counter := newCallCounter()
	c := loadedClerk(t, counter, client, func(router *mux.Router) {
		router.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("me")
			writeEnvelope(t, w, enriched, nil)
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/me/organization_memberships", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("memberships")
			writeEnvelope(t, w, api.OrganizationMembershipList{}, nil)
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/client/sessions/{sessionID}/touch", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("touch")
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "org_c", r.PostForm.Get("active_organization_id"))
			writeEnvelope(t, w,
				testSession("sess_1", enriched, "org_c"),
				testClient("sess_1", testSession("sess_1", enriched, "org_c")))
		}).Methods(http.MethodPost)
	})

	require.NoError(t, c.SetActive(context.Background(), SetActiveParams{Organization: "initech"}))
	assert.Equal(t, 1, counter.get("me"))
	assert.Zero(t, counter.get("memberships"))
	assert.Equal(t, 1, counter.get("touch"))

	org, err := c.Organization()
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "org_c", org.ID)
}

func TestSetActive_OrganizationFromMembershipListing(t *testing.T) {
	bare := testUser("user_1")
	client := testClient("sess_1", testSession("sess_1", bare, ""))
	membership := testMembership("org_d", "umbrella")
	enriched := testUser("user_1", membership)

	counter := newCallCounter()
	c := loadedClerk(t, counter, client, func(router *mux.Router) {
		router.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("me")
			writeEnvelope(t, w, bare, nil)
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/me/organization_memberships", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("memberships")
			writeEnvelope(t, w, api.OrganizationMembershipList{
				Data:       []api.OrganizationMembership{membership},
				TotalCount: 1,
			}, nil)
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/client/sessions/{sessionID}/touch", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("touch")
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "org_d", r.PostForm.Get("active_organization_id"))
			writeEnvelope(t, w,
				testSession("sess_1", enriched, "org_d"),
				testClient("sess_1", testSession("sess_1", enriched, "org_d")))
		}).Methods(http.MethodPost)
	})

	// org_d carries the org_ prefix, so every tier compares it as an ID.
	require.NoError(t, c.SetActive(context.Background(), SetActiveParams{Organization: "org_d"}))
	assert.Equal(t, 1, counter.get("me"))
	assert.Equal(t, 1, counter.get("memberships"))
	assert.Equal(t, 1, counter.get("touch"))

	org, err := c.Organization()
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "org_d", org.ID)
}

func TestSetActive_OrganizationNotFound(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient("org_a"), func(router *mux.Router) {
		router.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("me")
			writeEnvelope(t, w, testUser("user_1"), nil)
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/me/organization_memberships", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("memberships")
			writeEnvelope(t, w, api.OrganizationMembershipList{}, nil)
		}).Methods(http.MethodGet)
		router.HandleFunc("/v1/client/sessions/{sessionID}/touch", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("touch")
			w.WriteHeader(http.StatusInternalServerError)
		}).Methods(http.MethodPost)
	})

	err := c.SetActive(context.Background(), SetActiveParams{Organization: "org_missing"})
	require.Error(t, err)

	var notFound *OrganizationNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "org_missing", notFound.Target)

	// All three tiers were consulted and the session was never touched.
	assert.Equal(t, 1, counter.get("me"))
	assert.Equal(t, 1, counter.get("memberships"))
	assert.Zero(t, counter.get("touch"))

	org, orgErr := c.Organization()
	require.NoError(t, orgErr)
	require.NotNil(t, org)
	assert.Equal(t, "org_a", org.ID)
}

func TestSetActive_TouchFailureDropsStagedOrganization(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient(""), func(router *mux.Router) {
		router.HandleFunc("/v1/client/sessions/{sessionID}/touch", func(w http.ResponseWriter, r *http.Request) {
			counter.inc("touch")
			w.WriteHeader(http.StatusInternalServerError)
		}).Methods(http.MethodPost)
	})

	err := c.SetActive(context.Background(), SetActiveParams{Organization: "org_b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to touch session")

	// A later unrelated update must not resurrect the failed activation.
	c.OnClientUpdate(orgStateClient(""))
	org, orgErr := c.Organization()
	require.NoError(t, orgErr)
	assert.Nil(t, org)
}

func TestAuthorizationHeaderAccessors(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient(""), nil)
	ctx := context.Background()

	header, err := c.AuthorizationHeader(ctx)
	require.NoError(t, err)
	assert.Empty(t, header)

	require.NoError(t, c.SetAuthorizationHeader(ctx, "custom-token"))
	header, err = c.AuthorizationHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "custom-token", header)

	require.NoError(t, c.SetAuthorizationHeader(ctx, ""))
	header, err = c.AuthorizationHeader(ctx)
	require.NoError(t, err)
	assert.Empty(t, header)
}

func TestAddListener_AfterLoadInvokesImmediately(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient("org_a"), nil)

	invocations := 0
	var gotOrg *api.Organization
	c.AddListener(func(client *api.Client, session *api.Session, user *api.User, org *api.Organization) {
		invocations++
		gotOrg = org
	})

	assert.Equal(t, 1, invocations)
	require.NotNil(t, gotOrg)
	assert.Equal(t, "org_a", gotOrg.ID)
}

func TestAddListener_BeforeLoadDefersFirstNotification(t *testing.T) {
	counter := newCallCounter()
	router := fapiRouter(t, counter, orgStateClient("org_a"))
	c, _ := newTestClerk(t, testPublishableKey, router)

	invocations := 0
	c.AddListener(func(*api.Client, *api.Session, *api.User, *api.Organization) { invocations++ })
	assert.Zero(t, invocations)

	_, err := c.Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, invocations)
}

func TestListenersHearEveryAcceptedUpdate(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient("org_a"), nil)

	invocations := 0
	handle := c.AddListener(func(*api.Client, *api.Session, *api.User, *api.Organization) { invocations++ })
	require.Equal(t, 1, invocations)

	c.OnClientUpdate(orgStateClient("org_b"))
	assert.Equal(t, 2, invocations)

	handle.Remove()
	c.OnClientUpdate(orgStateClient(""))
	assert.Equal(t, 2, invocations)
}

func TestOnClientUpdate_NilIsIgnored(t *testing.T) {
	counter := newCallCounter()
	c := loadedClerk(t, counter, orgStateClient("org_a"), nil)

	before, err := c.Client()
	require.NoError(t, err)

	c.OnClientUpdate(nil)

	after, err := c.Client()
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestOnClientUpdate_PersistsClient(t *testing.T) {
	counter := newCallCounter()
	router := fapiRouter(t, counter, orgStateClient("org_a"))
	c, memory := newTestClerk(t, testPublishableKey, router)

	ctx := context.Background()
	_, err := c.Load(ctx, LoadOptions{})
	require.NoError(t, err)

	updated := orgStateClient("org_b")
	updated.ID = "client_updated"
	c.OnClientUpdate(updated)

	var stored api.Client
	require.NoError(t, store.GetJSON(ctx, memory, store.KeyClient, &stored))
	assert.Equal(t, "client_updated", stored.ID)
}

func TestRefreshEnvironment(t *testing.T) {
	counter := newCallCounter()
	router := mux.NewRouter()
	router.HandleFunc("/v1/environment", func(w http.ResponseWriter, r *http.Request) {
		counter.inc("environment")
		env := testEnvironment()
		if counter.get("environment") > 1 {
			env.DisplayConfig.ApplicationName = "Renamed App"
		}
		writeJSON(t, w, env)
	}).Methods(http.MethodGet)
	router.HandleFunc("/v1/client", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, orgStateClient("org_a"), nil)
	}).Methods(http.MethodGet)

	c, _ := newTestClerk(t, testPublishableKey, router)

	ctx := context.Background()
	_, err := c.Load(ctx, LoadOptions{})
	require.NoError(t, err)

	require.NoError(t, c.RefreshEnvironment(ctx))
	assert.Equal(t, 2, counter.get("environment"))

	env, err := c.Environment()
	require.NoError(t, err)
	assert.Equal(t, "Renamed App", env.DisplayConfig.ApplicationName)
}

func TestSetLoaded_OutOfBandResources(t *testing.T) {
	c, memory := newTestClerk(t, testPublishableKey, mux.NewRouter())

	invocations := 0
	c.AddListener(func(*api.Client, *api.Session, *api.User, *api.Organization) { invocations++ })

	ctx := context.Background()
	require.NoError(t, c.SetLoaded(ctx, testEnvironment(), orgStateClient("org_a")))
	assert.True(t, c.Loaded())
	assert.Equal(t, 1, invocations)

	session, err := c.Session()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "sess_1", session.ID)

	var stored api.Client
	require.NoError(t, store.GetJSON(ctx, memory, store.KeyClient, &stored))
	assert.Equal(t, "client_abc123", stored.ID)
}

func TestStoreKeyPrefix(t *testing.T) {
	counter := newCallCounter()
	router := fapiRouter(t, counter, orgStateClient("org_a"))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	cfg := config.New(testPublishableKey)
	cfg.BaseURL = server.URL + "/v1"
	cfg.StoreKeyPrefix = "alfa:"

	memory := store.NewMemoryStore()
	c, err := New(cfg, WithLogger(observability.Nop()), WithStore(memory))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Load(ctx, LoadOptions{})
	require.NoError(t, err)

	_, err = memory.Get(ctx, "alfa:"+store.KeyClient)
	assert.NoError(t, err)
	_, err = memory.Get(ctx, store.KeyClient)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMetricsWiring(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	counter := newCallCounter()
	router := fapiRouter(t, counter, orgStateClient("org_a"))
	c, _ := newTestClerk(t, testPublishableKey, router, WithMetrics(metrics))

	_, err := c.Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	c.OnClientUpdate(orgStateClient("org_b"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StateUpdatesTotal.WithLabelValues("load")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StateUpdatesTotal.WithLabelValues("piggyback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("get_environment", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("get_client", "success")))

	// Environment, client, and the piggybacked client all flowed through the
	// instrumented store decorator.
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.StoreOperationsTotal.WithLabelValues("set", "memory", "success")))
}
