package audit

import (
	"context"
	"fmt"
)

// DBLogger is the database sink for the audit trail. It writes events
// synchronously; callers that want fire-and-forget semantics should wrap
// it in a MultiLogger with async delivery.
type DBLogger struct {
	store *Store
}

// NewDBLogger creates a database-backed audit logger. The audit schema
// must already be migrated via RunMigrations.
func NewDBLogger(store *Store) (*DBLogger, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	return &DBLogger{store: store}, nil
}

// Log writes the event to the audit_events table
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	return l.store.Insert(ctx, event)
}

// Close is a no-op; the caller owns the database connection
func (l *DBLogger) Close() error {
	return nil
}
