package clerk

import (
	"sync"

	"github.com/google/uuid"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
)

// Listener receives the derived state after every accepted update. The
// arguments are shared snapshots; listeners must treat them as read-only.
// Session, user, and organization are nil when no corresponding entity is
// active.
type Listener func(client *api.Client, session *api.Session, user *api.User, organization *api.Organization)

// ListenerHandle identifies a registered listener. Handles are returned by
// AddListener and remain valid until removed.
type ListenerHandle struct {
	id       string
	registry *listenerRegistry
}

// Remove unregisters the listener. Removing twice is a no-op.
func (h *ListenerHandle) Remove() {
	if h == nil || h.registry == nil {
		return
	}
	h.registry.remove(h.id)
}

type registeredListener struct {
	id string
	fn Listener
}

// listenerRegistry is an ordered set of state listeners. Notification runs
// against a point-in-time copy of the set, so listeners may register or
// remove listeners from inside a callback without deadlocking.
type listenerRegistry struct {
	mu        sync.RWMutex
	listeners []registeredListener

	logger  *observability.Logger
	metrics *observability.Metrics
}

func newListenerRegistry(logger *observability.Logger, metrics *observability.Metrics) *listenerRegistry {
	if logger == nil {
		logger = observability.Nop()
	}
	return &listenerRegistry{logger: logger, metrics: metrics}
}

func (r *listenerRegistry) add(fn Listener) *ListenerHandle {
	id := uuid.NewString()
	r.mu.Lock()
	r.listeners = append(r.listeners, registeredListener{id: id, fn: fn})
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ListenersActive.Inc()
	}
	return &ListenerHandle{id: id, registry: r}
}

func (r *listenerRegistry) remove(id string) {
	r.mu.Lock()
	removed := false
	for i := range r.listeners {
		if r.listeners[i].id == id {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			removed = true
			break
		}
	}
	r.mu.Unlock()

	if removed && r.metrics != nil {
		r.metrics.ListenersActive.Dec()
	}
}

func (r *listenerRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// notify delivers snap to every listener registered at the time of the call,
// in registration order. Nothing is delivered while the client is nil.
func (r *listenerRegistry) notify(snap stateSnapshot) {
	if snap.client == nil {
		return
	}

	r.mu.RLock()
	listeners := make([]registeredListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		r.invoke(l, snap)
	}
}

// invoke runs one listener with panic isolation, so a failing subscriber
// cannot take down the process or stop delivery to later subscribers.
func (r *listenerRegistry) invoke(l registeredListener, snap stateSnapshot) {
	status := "success"
	defer func() {
		if r.metrics != nil {
			r.metrics.ListenerInvocationsTotal.WithLabelValues(status).Inc()
		}
	}()
	defer observability.RecoverPanicWithCallback(
		r.logger.WithField("listener_id", l.id),
		"state listener",
		func() { status = "panic" },
	)

	l.fn(snap.client, snap.session, snap.user, snap.organization)
}
