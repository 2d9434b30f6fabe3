package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// captureLogger records events for assertions
type captureLogger struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (c *captureLogger) Log(ctx context.Context, event *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

func (c *captureLogger) Close() error { return nil }

func (c *captureLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestMultiLoggerFansOut(t *testing.T) {
	primary := &captureLogger{}
	secondary := &captureLogger{}
	logger := NewMultiLogger(primary, secondary)

	event := testEvent(EventTypeMatrixSave, uuid.New(), time.Now().UTC())
	if err := logger.Log(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if primary.count() != 1 {
		t.Errorf("expected 1 event in primary, got %d", primary.count())
	}

	// Secondary delivery is asynchronous
	deadline := time.Now().Add(2 * time.Second)
	for secondary.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if secondary.count() != 1 {
		t.Errorf("expected 1 event in secondary, got %d", secondary.count())
	}
}

func TestMultiLoggerPrimaryErrorSurfaces(t *testing.T) {
	primary := &captureLogger{err: fmt.Errorf("disk full")}
	secondary := &captureLogger{}
	logger := NewMultiLogger(primary, secondary)

	event := testEvent(EventTypeMatrixSave, uuid.New(), time.Now().UTC())
	if err := logger.Log(context.Background(), event); err == nil {
		t.Error("expected primary sink error to surface")
	}
}

func TestMultiLoggerSecondaryErrorSwallowed(t *testing.T) {
	primary := &captureLogger{}
	secondary := &captureLogger{err: fmt.Errorf("unreachable")}
	logger := NewMultiLogger(primary, secondary)

	event := testEvent(EventTypeMatrixSave, uuid.New(), time.Now().UTC())
	if err := logger.Log(context.Background(), event); err != nil {
		t.Errorf("secondary sink error should not surface, got %v", err)
	}
	if primary.count() != 1 {
		t.Errorf("expected primary write to land, got %d", primary.count())
	}
}
