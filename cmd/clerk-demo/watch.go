package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/clerk-fapi-go/pkg/api"
	"github.com/platinummonkey/clerk-fapi-go/pkg/async"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/refresh"
	"github.com/platinummonkey/clerk-fapi-go/pkg/store"
)

func newWatchCommand() *Command {
	flags := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := flags.String("config", "", "Path to a clerk-demo.yaml config file")

	return &Command{
		Name:        "watch",
		Description: "Stream state updates until interrupted, with optional keep-alive and metrics",
		Run: func(args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}

			app, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := signalContext()
			defer cancel()
			if err := app.load(ctx, true); err != nil {
				return err
			}

			handle := app.clerk.AddListener(func(client *api.Client, session *api.Session, user *api.User, organization *api.Organization) {
				fields := logrus.Fields{"client_id": client.ID}
				if session != nil {
					fields["session_id"] = session.ID
				}
				if user != nil {
					fields["user_id"] = user.ID
				}
				if organization != nil {
					fields["organization_id"] = organization.ID
				}
				app.log.WithFields(fields).Info("State updated")
			})
			defer handle.Remove()

			var server *http.Server
			if app.cfg.MetricsAddr != "" {
				server = newMetricsServer(app)
				async.SafeGo(ctx, app.logger, 0, "metrics server", func(context.Context) error {
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				app.log.WithField("addr", app.cfg.MetricsAddr).Info("Metrics and health endpoints running")
			}

			shutdown := observability.NewShutdownManager(app.logger, server, 10*time.Second)

			if app.sdkCfg.KeepAliveSchedule != "" {
				refresher, err := refresh.New(app.clerk,
					refresh.WithLogger(app.logger),
					refresh.WithMetrics(app.metrics),
				)
				if err != nil {
					return err
				}
				refresher.Start()
				shutdown.RegisterShutdownFunc(func(context.Context) error {
					refresher.Stop()
					return nil
				})
				app.log.WithField("schedule", refresher.Schedule()).Info("Session keep-alive running")
			}

			app.log.Info("Watching for state updates, press Ctrl-C to stop")
			if err := shutdown.Wait(ctx); err != nil {
				app.log.WithError(err).Warn("Shutdown finished with errors")
			}
			return nil
		},
	}
}

// newMetricsServer serves /metrics plus liveness and readiness probes. Loaded
// state is required for readiness; the persistence store only degrades it,
// matching how the SDK itself treats persistence failures.
func newMetricsServer(app *app) *http.Server {
	mux := http.NewServeMux()
	observability.RegisterMetricsEndpoint(mux, app.registry)

	checker := observability.NewHealthChecker()
	checker.Register("state", func(context.Context) error {
		if !app.clerk.Loaded() {
			return errors.New("state not loaded")
		}
		return nil
	})
	checker.RegisterOptional("store", func(ctx context.Context) error {
		if _, err := app.store.Get(ctx, store.KeyEnvironment); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	})
	observability.RegisterHealthRoutes(mux, checker)

	return &http.Server{Addr: app.cfg.MetricsAddr, Handler: mux}
}
