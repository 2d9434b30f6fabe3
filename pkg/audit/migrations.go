package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a single schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations holds the audit trail schema in order
var migrations = []Migration{
	{
		Version:     1,
		Description: "create audit_events table",
		SQL: `
			CREATE TABLE IF NOT EXISTS audit_events (
				id VARCHAR(36) PRIMARY KEY,
				timestamp TIMESTAMP NOT NULL,
				event_type VARCHAR(100) NOT NULL,
				status VARCHAR(20) NOT NULL,
				actor_id VARCHAR(36),
				super_admin BOOLEAN NOT NULL DEFAULT FALSE,
				tenant_id VARCHAR(36),
				target_user_id VARCHAR(36),
				resource_type VARCHAR(50),
				resource_id VARCHAR(255),
				ip_address VARCHAR(45),
				user_agent TEXT,
				request_id VARCHAR(100),
				message TEXT,
				error_message TEXT,
				metadata TEXT,
				changes TEXT,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
	{
		Version:     2,
		Description: "create audit_events indexes",
		SQL: `
			CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
			CREATE INDEX IF NOT EXISTS idx_audit_events_event_type ON audit_events(event_type);
			CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor_id);
			CREATE INDEX IF NOT EXISTS idx_audit_events_tenant ON audit_events(tenant_id)
		`,
	},
}

// RunMigrations applies any outstanding audit migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM audit_migrations WHERE version = $1", m.Version,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.ExecContext(ctx,
			"INSERT INTO audit_migrations (version, description) VALUES ($1, $2)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}
