package clerk

import (
	"errors"
	"fmt"
)

// ErrNotLoaded is returned by state accessors and session operations invoked
// before Load has completed successfully.
var ErrNotLoaded = errors.New("client state not loaded, call Load first")

// ErrSessionNotFound is returned by SetActive when the requested session is
// not present on the current client.
var ErrSessionNotFound = errors.New("session not found on this client")

// LoadStage identifies which phase of Load failed.
type LoadStage string

// Load phases, in the order they run.
const (
	LoadStageDevBrowser  LoadStage = "dev_browser"
	LoadStageEnvironment LoadStage = "environment"
	LoadStageClient      LoadStage = "client"
)

// LoadError wraps a failure during Load with the phase that produced it, so
// callers can tell a missing dev browser token from an unreachable instance.
type LoadError struct {
	Stage LoadStage
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load failed during %s: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// OrganizationNotFoundError is returned by SetActive when the requested
// organization identifier matches none of the user's memberships, even after
// refreshing them from the Frontend API.
type OrganizationNotFoundError struct {
	Target string
}

func (e *OrganizationNotFoundError) Error() string {
	return fmt.Sprintf("organization %q not found in the user's memberships", e.Target)
}

// PersistenceError reports that a resource was applied to in-memory state but
// could not be written to the persistence store. The in-memory state remains
// authoritative; the next successful write repairs the store.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
