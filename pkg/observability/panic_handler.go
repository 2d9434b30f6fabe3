package observability

import (
	"runtime/debug"
)

// RecoverPanic is intended for use in a defer statement around background
// work such as scheduled jobs. If the guarded code panics, the panic value
// and stack trace are logged at Error level and the goroutine returns
// normally instead of taking the process down.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}
