package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/clerk-fapi-go/pkg/clerk"
	"github.com/platinummonkey/clerk-fapi-go/pkg/config"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/store"
)

// app bundles everything a subcommand needs: configuration, loggers, metrics,
// and the coordinator itself.
type app struct {
	cfg      *Config
	sdkCfg   *config.Config
	log      *logrus.Logger
	logger   *observability.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	store    store.Store
	clerk    *clerk.Clerk
	cleanups []func() error
}

func newApp(configPath string) (*app, error) {
	var (
		cfg *Config
		err error
	)
	if configPath != "" {
		cfg, err = LoadConfig(configPath)
	} else {
		cfg, err = LoadConfigFromDir(".")
	}
	if err != nil {
		return nil, err
	}

	sdkCfg, err := cfg.SDKConfig()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(sdkCfg.Observability.LogLevel, os.Stderr)
	st, cleanup, err := cfg.BuildStore(logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	c, err := clerk.New(sdkCfg,
		clerk.WithLogger(logger),
		clerk.WithStore(st),
		clerk.WithMetrics(metrics),
	)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		sdkCfg:   sdkCfg,
		log:      newCLILogger(cfg.LogLevel),
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		store:    st,
		clerk:    c,
	}
	if cleanup != nil {
		a.cleanups = append(a.cleanups, cleanup)
	}
	return a, nil
}

func (a *app) load(ctx context.Context, preferCache bool) error {
	result, err := a.clerk.Load(ctx, clerk.LoadOptions{PreferCache: preferCache})
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"environment_from_cache": result.EnvironmentFromCache,
		"client_from_cache":      result.ClientFromCache,
	}).Debug("State loaded")
	return nil
}

func (a *app) close() {
	for _, cleanup := range a.cleanups {
		if err := cleanup(); err != nil {
			a.log.WithError(err).Warn("Cleanup failed")
		}
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
