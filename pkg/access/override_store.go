package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// OverrideStore persists per-user grant/revoke exceptions. Saves follow
// the same full-replace discipline as the role matrix: delete every row
// the user owns in the tenant, then reinsert, in one transaction.
type OverrideStore struct {
	db *sql.DB
}

// NewOverrideStore creates a new user override store.
func NewOverrideStore(db *sql.DB) *OverrideStore {
	return &OverrideStore{db: db}
}

// GetOverrides returns the user's overrides for the tenant ordered by
// module id.
func (s *OverrideStore) GetOverrides(ctx context.Context, tenantID, userID uuid.UUID) ([]Override, error) {
	query := `
		SELECT module_id, override_type
		FROM user_module_overrides
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY module_id
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var overrides []Override
	for rows.Next() {
		var moduleID, rawKind string
		if err := rows.Scan(&moduleID, &rawKind); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		kind, err := ParseOverrideKind(rawKind)
		if err != nil {
			return nil, fmt.Errorf("corrupt override row for %s/%s: %w", tenantID, userID, err)
		}
		overrides = append(overrides, Override{
			ModuleID: registry.ModuleID(moduleID),
			Kind:     kind,
		})
	}
	return overrides, rows.Err()
}

// SaveOverrides atomically replaces the user's override rows for the
// tenant. The target user's membership is verified inside the same
// transaction so a concurrent removal cannot produce cross-tenant rows.
// Duplicate module ids in the submitted batch collapse last-write-wins.
func (s *OverrideStore) SaveOverrides(ctx context.Context, tenantID, userID uuid.UUID, overrides []Override) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var member bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tenant_members WHERE tenant_id = $1 AND user_id = $2)`,
		tenantID.String(), userID.String(),
	).Scan(&member)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return tenants.ErrUserNotInTenant
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_module_overrides WHERE tenant_id = $1 AND user_id = $2`,
		tenantID.String(), userID.String(),
	); err != nil {
		return fmt.Errorf("failed to clear overrides: %w", err)
	}

	now := time.Now().UTC()
	for _, ov := range dedupeOverrides(overrides) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_module_overrides (tenant_id, user_id, module_id, override_type, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			tenantID.String(), userID.String(), string(ov.ModuleID), string(ov.Kind), now,
		); err != nil {
			return fmt.Errorf("failed to insert override: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit overrides: %w", err)
	}
	return nil
}

// dedupeOverrides collapses duplicate module ids, keeping the later entry
// in submission order, and preserves first-appearance ordering otherwise.
func dedupeOverrides(overrides []Override) []Override {
	last := make(map[registry.ModuleID]OverrideKind, len(overrides))
	order := make([]registry.ModuleID, 0, len(overrides))
	for _, ov := range overrides {
		if _, seen := last[ov.ModuleID]; !seen {
			order = append(order, ov.ModuleID)
		}
		last[ov.ModuleID] = ov.Kind
	}

	out := make([]Override, 0, len(order))
	for _, id := range order {
		out = append(out, Override{ModuleID: id, Kind: last[id]})
	}
	return out
}
