package audit

import (
	"context"
	"net/http"
	"time"
)

// Logger is the interface for audit trail sinks
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event) error

	// Close closes the logger and flushes any buffered events
	Close() error
}

// noOpLogger is a logger that does nothing (used when auditing is disabled)
type noOpLogger struct{}

// NewNoOpLogger returns a logger that discards every event
func NewNoOpLogger() Logger {
	return &noOpLogger{}
}

func (l *noOpLogger) Log(ctx context.Context, event *Event) error {
	return nil
}

func (l *noOpLogger) Close() error {
	return nil
}

// newEvent creates an event with common fields populated
func newEvent(eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		Metadata:  make(map[string]interface{}),
	}
}

// requestContext copies client-facing request fields onto the event
func requestContext(event *Event, r *http.Request, requestID string) {
	if r == nil {
		return
	}
	event.IPAddress = clientIP(r)
	event.UserAgent = r.UserAgent()
	event.RequestID = requestID
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
