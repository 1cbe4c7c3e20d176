// Package refresh keeps the active session alive for long-running processes.
//
// Clerk expires sessions that go untouched. Interactive apps touch them as a
// side effect of user activity; a headless host has no such traffic, so the
// refresher touches the active session on a cron schedule instead. Each touch
// also refreshes the local state through the piggybacked client on the
// response.
package refresh

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/clerk-fapi-go/pkg/clerk"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
)

// Refresher periodically touches the coordinator's active session.
type Refresher struct {
	clerk    *clerk.Clerk
	cron     *cron.Cron
	schedule string
	logger   *observability.Logger
	metrics  *observability.Metrics
}

type options struct {
	logger   *observability.Logger
	metrics  *observability.Metrics
	schedule string
}

// Option customizes a Refresher.
type Option func(*options)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *observability.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables keep-alive metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithSchedule overrides the cron schedule from the coordinator's config.
func WithSchedule(schedule string) Option {
	return func(o *options) { o.schedule = schedule }
}

// New builds a Refresher for c. The schedule comes from the coordinator's
// KeepAliveSchedule unless overridden, and accepts standard five-field cron
// expressions as well as @every descriptors.
func New(c *clerk.Clerk, opts ...Option) (*Refresher, error) {
	if c == nil {
		return nil, fmt.Errorf("clerk client is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.Nop()
	}
	schedule := o.schedule
	if schedule == "" {
		schedule = c.Config().KeepAliveSchedule
	}
	if schedule == "" {
		return nil, fmt.Errorf("keep-alive schedule is required")
	}

	r := &Refresher{
		clerk:    c,
		cron:     cron.New(),
		schedule: schedule,
		logger:   o.logger,
		metrics:  o.metrics,
	}

	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid keep-alive schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Schedule returns the cron expression in use.
func (r *Refresher) Schedule() string {
	return r.schedule
}

// Start begins scheduling touches. It returns immediately.
func (r *Refresher) Start() {
	r.logger.WithField("schedule", r.schedule).Info("Starting session keep-alive")
	r.cron.Start()
}

// Stop cancels the schedule and waits for an in-flight touch to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("Stopped session keep-alive")
}

func (r *Refresher) run() {
	defer observability.RecoverPanic(r.logger, "session keep-alive")

	if err := r.Touch(context.Background()); err != nil {
		r.logger.WithError(err).Warn("Session keep-alive touch failed")
	}
}

// Touch performs one keep-alive round: a no-op while the coordinator is not
// loaded or has no active session, otherwise a touch of that session without
// changing its organization.
func (r *Refresher) Touch(ctx context.Context) error {
	if !r.clerk.Loaded() {
		r.observe("skipped")
		r.logger.Debug("Skipping keep-alive, state not loaded")
		return nil
	}

	session, err := r.clerk.Session()
	if err != nil {
		r.observe("skipped")
		return nil
	}
	if session == nil {
		r.observe("skipped")
		r.logger.Debug("Skipping keep-alive, no active session")
		return nil
	}

	if _, err := r.clerk.API().TouchSession(ctx, session.ID, ""); err != nil {
		r.observe("error")
		return fmt.Errorf("failed to touch session %s: %w", session.ID, err)
	}

	r.observe("success")
	r.logger.WithField("session_id", session.ID).Debug("Touched active session")
	return nil
}

func (r *Refresher) observe(status string) {
	if r.metrics == nil {
		return
	}
	r.metrics.KeepAliveRunsTotal.WithLabelValues(status).Inc()
}
