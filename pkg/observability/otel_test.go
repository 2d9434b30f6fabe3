package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitOTel_Disabled(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, logger)
	if err != nil {
		t.Fatalf("Expected no error when disabled, got %v", err)
	}
	if providers != nil {
		t.Error("Expected nil providers when disabled")
	}
}

func TestShutdownOTel_NilProviders(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	if err := ShutdownOTel(context.Background(), nil, logger); err != nil {
		t.Errorf("Expected nil provider shutdown to be a no-op, got %v", err)
	}
}

func TestShutdownOTel_WithTracerProvider(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	providers := &OTelProviders{TracerProvider: sdktrace.NewTracerProvider()}

	if err := ShutdownOTel(context.Background(), providers, logger); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestUpdateLoggerWithTraceContext_NoSpan(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	got := UpdateLoggerWithTraceContext(context.Background(), logger)
	if got != logger {
		t.Error("Expected the same logger back without an active span")
	}
}

func TestUpdateLoggerWithTraceContext_WithSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	UpdateLoggerWithTraceContext(ctx, logger).Info("traced message")

	out := buf.String()
	if !strings.Contains(out, "trace_id") || !strings.Contains(out, "span_id") {
		t.Errorf("Expected trace fields in log output, got %s", out)
	}
}
