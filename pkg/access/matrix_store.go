package access

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// MatrixStore persists tenant-specific role→module visibility overrides.
//
// The matrix has no per-row update operation: saving is always an atomic
// full replace of every row the tenant owns. The existence of any row at
// all switches the tenant from Default mode to Custom mode, tenant-wide.
type MatrixStore struct {
	db *sql.DB
}

// NewMatrixStore creates a new role matrix store.
func NewMatrixStore(db *sql.DB) *MatrixStore {
	return &MatrixStore{db: db}
}

// GetMatrix returns the tenant's role matrix and whether the tenant is in
// Custom mode. Customization is derived from row existence on every read;
// the tenant_access_modes row is a write-time companion, not the truth.
func (s *MatrixStore) GetMatrix(ctx context.Context, tenantID uuid.UUID) (RoleMatrix, bool, error) {
	query := `
		SELECT role, module_id
		FROM role_module_overrides
		WHERE tenant_id = $1
		ORDER BY role, module_id
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, false, fmt.Errorf("failed to query role matrix: %w", err)
	}
	defer rows.Close()

	matrix := make(RoleMatrix)
	customized := false
	for rows.Next() {
		var rawRole, moduleID string
		if err := rows.Scan(&rawRole, &moduleID); err != nil {
			return nil, false, fmt.Errorf("failed to scan matrix row: %w", err)
		}
		customized = true

		role, err := tenants.ParseRole(rawRole)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt matrix row for tenant %s: %w", tenantID, err)
		}
		if matrix[role] == nil {
			matrix[role] = make(registry.ModuleSet)
		}
		matrix[role].Add(registry.ModuleID(moduleID))
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read role matrix: %w", err)
	}

	return matrix, customized, nil
}

// Mode returns the tenant's recorded access mode. Absence of a mode row
// means the tenant never saved a matrix, i.e. Default mode.
func (s *MatrixStore) Mode(ctx context.Context, tenantID uuid.UUID) (Mode, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT mode FROM tenant_access_modes WHERE tenant_id = $1`,
		tenantID.String(),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return ModeDefault, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get access mode: %w", err)
	}
	return Mode(raw), nil
}

// SaveMatrix atomically replaces the tenant's entire role matrix: every
// existing row is deleted and the submitted rows inserted in a single
// transaction, together with the derived mode row. Partial failure rolls
// back to the prior state.
func (s *MatrixStore) SaveMatrix(ctx context.Context, tenantID uuid.UUID, matrix map[tenants.Role][]registry.ModuleID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM role_module_overrides WHERE tenant_id = $1`,
		tenantID.String(),
	); err != nil {
		return fmt.Errorf("failed to clear role matrix: %w", err)
	}

	now := time.Now().UTC()
	rowCount := 0

	// Deterministic insert order keeps identical saves byte-identical in
	// the write-ahead log and makes test expectations stable.
	roles := make([]tenants.Role, 0, len(matrix))
	for role := range matrix {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	for _, role := range roles {
		moduleIDs := append([]registry.ModuleID(nil), matrix[role]...)
		sort.Slice(moduleIDs, func(i, j int) bool { return moduleIDs[i] < moduleIDs[j] })

		seen := make(map[registry.ModuleID]struct{}, len(moduleIDs))
		for _, moduleID := range moduleIDs {
			if _, dup := seen[moduleID]; dup {
				continue
			}
			seen[moduleID] = struct{}{}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role_module_overrides (tenant_id, role, module_id, created_at)
				 VALUES ($1, $2, $3, $4)`,
				tenantID.String(), string(role), string(moduleID), now,
			); err != nil {
				return fmt.Errorf("failed to insert matrix row: %w", err)
			}
			rowCount++
		}
	}

	mode := ModeDefault
	if rowCount > 0 {
		mode = ModeCustom
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tenant_access_modes (tenant_id, mode, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id) DO UPDATE SET mode = $2, updated_at = $3`,
		tenantID.String(), string(mode), now,
	); err != nil {
		return fmt.Errorf("failed to record access mode: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role matrix: %w", err)
	}
	return nil
}

// CountCustomized returns the number of tenants currently in Custom mode.
func (s *MatrixStore) CountCustomized(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tenant_access_modes WHERE mode = $1`,
		string(ModeCustom),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count customized tenants: %w", err)
	}
	return n, nil
}
