// Package config provides SDK configuration from explicit values or environment variables.
//
// # Overview
//
// This package holds everything needed to reach a Frontend API instance:
// the publishable key (and the base URL encoded inside it), HTTP timeouts,
// persistence key prefixes, token cache tuning, and observability settings.
//
// # Configuration Structure
//
// Instance settings:
//
//	CLERK_PUBLISHABLE_KEY="pk_test_Y2xlcmsuZXhhbXBsZS5jb20k"
//	CLERK_API_URL=""                # optional override of the derived origin
//	CLERK_STORE_KEY_PREFIX=""       # namespaces persisted snapshot keys
//	CLERK_HTTP_TIMEOUT="30s"
//
// Token settings:
//
//	CLERK_TOKEN_CACHE_SIZE="32"
//	CLERK_TOKEN_LEEWAY="10s"
//	CLERK_KEEPALIVE_SCHEDULE=""     # cron expression, empty disables
//
// Observability settings:
//
//	CLERK_LOG_LEVEL="info"          # debug, info, warn, error
//	CLERK_METRICS_ENABLED="false"
//	CLERK_OTEL_ENABLED="false"
//	CLERK_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Explicit construction:
//
//	cfg := config.New("pk_test_Y2xlcmsuZXhhbXBsZS5jb20k")
//
// Environment-driven:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// The publishable key encodes the Frontend API origin:
//
//	key, _ := config.ParsePublishableKey(cfg.PublishableKey)
//	fmt.Println(key.FrontendAPIURL()) // https://clerk.example.com/v1
//
// # Related Packages
//
//   - pkg/fapi: consumes the base URL and timeouts
//   - pkg/observability: consumes the observability configuration
package config
