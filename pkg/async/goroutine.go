package async

import (
	"context"
	"time"

	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Optional timeout enforcement (timeout <= 0 means none)
// - Error logging through the SDK logger
//
// Use this instead of bare `go func()` for the SDK's background work
// (store watchers, session keep-alive) so a failure never crashes the
// host application.
//
// Example:
//
//	async.SafeGo(ctx, logger, 0, "file store watcher", func(ctx context.Context) error {
//	    return watchLoop(ctx)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	if logger == nil {
		logger = observability.Nop()
	}

	go func() {
		ctx := parentCtx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(parentCtx, timeout)
			defer cancel()
		}

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
// Still provides panic recovery and context support.
func SafeGoNoError(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, logger, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
