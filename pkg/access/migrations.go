package access

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all access-resolution migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create role_module_overrides table",
			SQL: `
				CREATE TABLE IF NOT EXISTS role_module_overrides (
					tenant_id VARCHAR(36) NOT NULL,
					role VARCHAR(32) NOT NULL,
					module_id VARCHAR(128) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					PRIMARY KEY (tenant_id, role, module_id)
				);

				CREATE INDEX IF NOT EXISTS idx_role_module_overrides_tenant
					ON role_module_overrides(tenant_id);
			`,
		},
		{
			Version:     2,
			Description: "Create tenant_access_modes table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenant_access_modes (
					tenant_id VARCHAR(36) PRIMARY KEY,
					mode VARCHAR(16) NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);
			`,
		},
		{
			Version:     3,
			Description: "Create user_module_overrides table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_module_overrides (
					tenant_id VARCHAR(36) NOT NULL,
					user_id VARCHAR(36) NOT NULL,
					module_id VARCHAR(128) NOT NULL,
					override_type VARCHAR(16) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					PRIMARY KEY (tenant_id, user_id, module_id)
				);

				CREATE INDEX IF NOT EXISTS idx_user_module_overrides_user
					ON user_module_overrides(tenant_id, user_id);
			`,
		},
	}
}

// RunMigrations applies all pending access migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS access_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM access_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO access_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
