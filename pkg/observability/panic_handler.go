package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured logging.
//
// Usage in defer statements:
//
//	func invokeCallback() {
//	    defer observability.RecoverPanic(logger, "state listener")
//	    listener(snapshot)
//	}
//
// After logging, the panic is NOT re-raised. A panicking subscriber must
// not take down the process embedding the SDK, nor stop delivery to the
// subscribers registered after it.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it, and executes a
// callback. The callback runs only when a panic occurred, after logging,
// so cleanup such as marking a failed invocation in metrics can happen
// without re-raising.
func RecoverPanicWithCallback(logger *Logger, context string, callback func()) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
		if callback != nil {
			callback()
		}
	}
}
