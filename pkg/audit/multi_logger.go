package audit

import (
	"context"
	"time"

	"github.com/opshub-io/opshub/pkg/async"
)

// MultiLogger fans events out to multiple sinks. The first logger is the
// primary: its errors are returned to the caller. Remaining loggers are
// secondary sinks written asynchronously; their failures are logged by
// the async runner and never block the request path.
type MultiLogger struct {
	primary      Logger
	secondaries  []Logger
	asyncTimeout time.Duration
}

// NewMultiLogger creates a fan-out logger. At least one sink is required.
func NewMultiLogger(primary Logger, secondaries ...Logger) *MultiLogger {
	return &MultiLogger{
		primary:      primary,
		secondaries:  secondaries,
		asyncTimeout: 5 * time.Second,
	}
}

// Log writes to the primary sink, then fans out to the secondaries
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	err := m.primary.Log(ctx, event)

	for _, secondary := range m.secondaries {
		sink := secondary
		// Detach from the request context so cancellation after the
		// response does not drop the secondary write.
		async.SafeGo(context.Background(), m.asyncTimeout, "audit fan-out", func(ctx context.Context) error {
			return sink.Log(ctx, event)
		})
	}

	return err
}

// Close closes all sinks, returning the first error encountered
func (m *MultiLogger) Close() error {
	err := m.primary.Close()
	for _, secondary := range m.secondaries {
		if cerr := secondary.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
