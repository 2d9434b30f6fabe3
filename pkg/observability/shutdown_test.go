package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	sm := NewShutdownManager(logger, &http.Server{}, 0)
	if sm.shutdownTimeout != 30*time.Second {
		t.Errorf("Expected 30s default timeout, got %v", sm.shutdownTimeout)
	}

	sm = NewShutdownManager(logger, &http.Server{}, 5*time.Second)
	if sm.shutdownTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", sm.shutdownTimeout)
	}
}

func TestShutdownManager_RegisterShutdownFunc(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	sm := NewShutdownManager(logger, &http.Server{}, time.Second)

	sm.RegisterShutdownFunc(func(context.Context) error { return nil })
	sm.RegisterShutdownFunc(func(context.Context) error { return nil })

	if len(sm.shutdownFuncs) != 2 {
		t.Errorf("Expected 2 registered functions, got %d", len(sm.shutdownFuncs))
	}
}

func TestShutdownManager_ShutdownRunsFuncs(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	sm := NewShutdownManager(logger, nil, time.Second)

	var calls int32
	sm.RegisterShutdownFunc(func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	sm.RegisterShutdownFunc(func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	if err := sm.shutdown(); err != nil {
		t.Fatalf("Expected clean shutdown, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected both shutdown functions called, got %d", calls)
	}
}

func TestShutdownManager_ShutdownCollectsErrors(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})
	sm := NewShutdownManager(logger, nil, time.Second)

	sm.RegisterShutdownFunc(func(context.Context) error { return nil })
	sm.RegisterShutdownFunc(func(context.Context) error { return errors.New("flush failed") })

	if err := sm.shutdown(); err == nil {
		t.Error("Expected error when a shutdown function fails")
	}
}

func TestShutdownManager_ShutdownTimeout(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})
	sm := NewShutdownManager(logger, nil, 100*time.Millisecond)

	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	if err := sm.shutdown(); err == nil {
		t.Error("Expected timeout error for a hung shutdown function")
	}
}

func TestShutdownManager_ServerShutdown(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	server := &http.Server{Addr: "127.0.0.1:0"}
	sm := NewShutdownManager(logger, server, time.Second)

	if err := sm.shutdown(); err != nil {
		t.Errorf("Expected idle server to shut down cleanly, got %v", err)
	}
}
