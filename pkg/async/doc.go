// Package async provides safe concurrent execution primitives for the SDK's background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery,
// optional timeout enforcement, and context cancellation. The SDK spawns very
// few goroutines of its own; every one of them goes through SafeGo so a
// failure is logged instead of crashing the embedding application.
//
// # Key Functions
//
// SafeGo: execute a function in a goroutine with safety features
//
//	async.SafeGo(ctx, logger, 0, "metrics server", func(context.Context) error {
//		return server.ListenAndServe()
//	})
//
// SafeGoNoError: same, for functions without an error return
//
// # Related Packages
//
//   - pkg/store: uses SafeGo for the fsnotify watcher loop
//   - cmd/clerk-demo: uses SafeGo for the metrics server
package async
