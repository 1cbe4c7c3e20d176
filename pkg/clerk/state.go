package clerk

import (
	"sync"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
)

// stateSnapshot is a point-in-time view of the derived session state. The
// resource pointers are shared with later readers and must be treated as
// read-only.
type stateSnapshot struct {
	environment  *api.Environment
	client       *api.Client
	session      *api.Session
	user         *api.User
	organization *api.Organization
	loaded       bool
}

// state holds the authoritative client/session/user/organization view. All
// writes replace whole snapshots and re-derive the dependent entities under
// one write lock, so readers never observe a client paired with a session it
// does not contain. Persistence and listener notification happen outside the
// lock, against snapshots copied under it.
type state struct {
	mu sync.RWMutex

	environment  *api.Environment
	client       *api.Client
	session      *api.Session
	user         *api.User
	organization *api.Organization
	loaded       bool

	// targetOrganization is a single-slot mailbox written by SetActive and
	// consumed exactly once, by whichever derivation runs next.
	targetOrganization *string

	logger *observability.Logger
}

func newState(logger *observability.Logger) *state {
	if logger == nil {
		logger = observability.Nop()
	}
	return &state{logger: logger}
}

func (s *state) isLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *state) snapshot() stateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *state) snapshotLocked() stateSnapshot {
	return stateSnapshot{
		environment:  s.environment,
		client:       s.client,
		session:      s.session,
		user:         s.user,
		organization: s.organization,
		loaded:       s.loaded,
	}
}

// setEnvironment replaces the environment snapshot. The environment does not
// participate in derivation.
func (s *state) setEnvironment(environment *api.Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environment = environment
}

// setLoaded installs the initial environment and client pair and marks the
// state loaded. Loaded never reverts for the lifetime of the process.
func (s *state) setLoaded(environment *api.Environment, client *api.Client) stateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environment = environment
	s.client = client
	s.loaded = true
	s.derive()
	return s.snapshotLocked()
}

// setClient accepts a new client snapshot and re-derives session, user, and
// organization atomically with respect to readers.
func (s *state) setClient(client *api.Client) stateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
	s.derive()
	return s.snapshotLocked()
}

// stageTargetOrganization stages the organization the next derivation should
// activate. Passing nil clears a staging that never reached the server.
func (s *state) stageTargetOrganization(id *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetOrganization = id
}

// derive recomputes the active session, user, and organization from the
// current client. The caller holds the write lock.
func (s *state) derive() {
	target := s.targetOrganization
	s.targetOrganization = nil

	if s.client == nil {
		s.session = nil
		s.user = nil
		s.organization = nil
		return
	}

	session := s.client.SessionByID(s.client.LastActiveSessionID)
	if session == nil {
		s.session = nil
		s.user = nil
		s.organization = nil
		return
	}
	s.session = session

	if session.User == nil {
		s.user = nil
		s.organization = nil
		return
	}
	s.user = session.User

	organizationID := session.LastActiveOrganizationID
	if target != nil {
		organizationID = *target
	}
	if organizationID == "" {
		s.organization = nil
		return
	}

	membership := s.user.MembershipByOrganizationID(organizationID)
	if membership == nil {
		// A target missing from the membership list leaves the previous
		// organization in place.
		s.logger.WithField("organization_id", organizationID).
			Warn("Active organization not found in user memberships, keeping previous")
		return
	}
	organization := membership.Organization
	s.organization = &organization
}
