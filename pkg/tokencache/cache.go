// Package tokencache holds recently minted session JWTs so repeated GetToken
// calls inside a token's lifetime skip the network round-trip.
package tokencache

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/sessiontoken"
)

// maxEntryAge backstops the LRU so entries whose JWTs somehow carry far-off
// expirations still rotate out.
const maxEntryAge = time.Hour

type entry struct {
	token  *api.Token
	expiry time.Time
}

// Cache is an LRU of minted tokens keyed by session, organization, and
// template. Each entry expires with its JWT's exp claim minus a configured
// leeway, so callers never receive a token about to lapse mid-request.
type Cache struct {
	lru     *lru.LRU[string, entry]
	leeway  time.Duration
	metrics *observability.Metrics
	now     func() time.Time
}

// New creates a cache holding at most size tokens. A nil metrics disables
// instrumentation.
func New(size int, leeway time.Duration, metrics *observability.Metrics) *Cache {
	if size <= 0 {
		size = 32
	}
	if leeway < 0 {
		leeway = 0
	}

	c := &Cache{
		leeway:  leeway,
		metrics: metrics,
		now:     time.Now,
	}
	c.lru = lru.NewLRU[string, entry](size, func(string, entry) {
		if c.metrics != nil {
			c.metrics.TokenCacheEvictionsTotal.Inc()
		}
	}, maxEntryAge)
	return c
}

// Key builds the cache key for a token request. Tokens differ per session,
// per active organization, and per JWT template, so all three participate.
func Key(sessionID, organizationID, template string) string {
	return strings.Join([]string{sessionID, organizationID, template}, "|")
}

// Get returns a cached token that is still comfortably within its lifetime.
// Stale entries count as misses and are dropped.
func (c *Cache) Get(key string) (*api.Token, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.miss()
		return nil, false
	}
	if !c.now().Add(c.leeway).Before(e.expiry) {
		c.lru.Remove(key)
		c.miss()
		return nil, false
	}
	c.hit()
	return e.token, true
}

// Put caches token under key for the remainder of its JWT lifetime. Tokens
// without a parseable exp claim are not cached.
func (c *Cache) Put(key string, token *api.Token) {
	if token == nil || token.JWT == "" {
		return
	}
	claims, err := sessiontoken.Parse(token.JWT)
	if err != nil {
		return
	}
	expiry := claims.Expiry()
	if expiry.IsZero() || !c.now().Add(c.leeway).Before(expiry) {
		return
	}
	c.lru.Add(key, entry{token: token, expiry: expiry})
}

// Purge drops every cached token. Called when all client sessions are
// signed out.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// PurgeSession drops every token minted for one session, leaving other
// sessions' tokens in place. Called on single-session sign-out and on
// session or organization switches, where previously minted JWTs no longer
// reflect the session's context.
func (c *Cache) PurgeSession(sessionID string) {
	if sessionID == "" {
		return
	}
	prefix := sessionID + "|"
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}

// Len returns the number of cached tokens, counting entries the LRU has not
// yet expired.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) hit() {
	if c.metrics != nil {
		c.metrics.TokenCacheHitsTotal.Inc()
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.TokenCacheMissesTotal.Inc()
	}
}
