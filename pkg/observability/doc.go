// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing for the SDK.
//
// # Overview
//
// This package centralizes the SDK's observability infrastructure. Everything
// is opt-in: components constructed without a logger get a no-op one, and
// metrics collectors are only wired when the host application passes a
// registry. The SDK never starts listeners or writes to stdout on its own.
//
// # Structured Logging
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.DebugLevel, os.Stderr)
//	logger.WithField("session_id", sessionID).Info("session touched")
//
// The default for an unset logger is observability.Nop(), which discards
// all output.
//
// # Prometheus Metrics
//
// Initialize metrics against the host application's registry:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.APIRequestsTotal.WithLabelValues("get_client", "success").Inc()
//	metrics.StateUpdatesTotal.WithLabelValues("piggyback").Inc()
//
// # OpenTelemetry
//
// Initialize tracing and metrics export:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:  true,
//		Endpoint: "otel-collector:4317",
//		Insecure: true,
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Health and Shutdown
//
// Host applications embedding the SDK can register health probes and drain
// cleanly on SIGINT/SIGTERM:
//
//	checker := observability.NewHealthChecker()
//	checker.Register("state", stateProbe)
//	observability.RegisterHealthRoutes(mux, checker)
//
//	shutdown := observability.NewShutdownManager(logger, server, 10*time.Second)
//	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
//		refresher.Stop()
//		return nil
//	})
//	err := shutdown.WaitForShutdown()
//
// # Related Packages
//
//   - pkg/config: environment-driven configuration including log level
//   - pkg/fapi: instruments API calls with these metrics and otelhttp
package observability
