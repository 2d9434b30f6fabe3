package tenants

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/registry"
)

// Store handles tenant and membership persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a new tenant store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetTenant retrieves a tenant by id. Returns ErrTenantNotFound when the
// record does not exist.
func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	query := `
		SELECT id, name, template_id, feature_keys, status, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var t Tenant
	var idStr string
	var templateID sql.NullString
	var featureKeysJSON string

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr,
		&t.Name,
		&templateID,
		&featureKeysJSON,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	t.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id %q: %w", idStr, err)
	}
	if templateID.Valid {
		t.TemplateID = registry.TemplateID(templateID.String)
	}
	if featureKeysJSON != "" {
		if err := json.Unmarshal([]byte(featureKeysJSON), &t.FeatureKeys); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feature keys: %w", err)
		}
	}

	return &t, nil
}

// CreateTenant inserts a new tenant record.
func (s *Store) CreateTenant(ctx context.Context, t *Tenant) error {
	featureKeysJSON, err := json.Marshal(t.FeatureKeys)
	if err != nil {
		return fmt.Errorf("failed to marshal feature keys: %w", err)
	}

	var templateID interface{}
	if t.TemplateID != "" {
		templateID = string(t.TemplateID)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO tenants (id, name, template_id, feature_keys, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		t.ID.String(),
		t.Name,
		templateID,
		string(featureKeysJSON),
		string(t.Status),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// MemberRole returns the caller's membership role within the tenant.
// Returns ErrUserNotInTenant when no membership row exists.
func (s *Store) MemberRole(ctx context.Context, tenantID, userID uuid.UUID) (Role, error) {
	query := `
		SELECT role FROM tenant_members
		WHERE tenant_id = $1 AND user_id = $2
	`

	var raw string
	err := s.db.QueryRowContext(ctx, query, tenantID.String(), userID.String()).Scan(&raw)
	if err == sql.ErrNoRows {
		return "", ErrUserNotInTenant
	}
	if err != nil {
		return "", fmt.Errorf("failed to get membership: %w", err)
	}

	role, err := ParseRole(raw)
	if err != nil {
		return "", fmt.Errorf("corrupt membership row for %s/%s: %w", tenantID, userID, err)
	}
	return role, nil
}

// IsMember reports whether the user belongs to the tenant.
func (s *Store) IsMember(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	_, err := s.MemberRole(ctx, tenantID, userID)
	if err == ErrUserNotInTenant {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddMember inserts a membership row.
func (s *Store) AddMember(ctx context.Context, m *Member) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO tenant_members (tenant_id, user_id, role, added_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query,
		m.TenantID.String(),
		m.UserID.String(),
		string(m.Role),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	m.AddedAt = now
	return nil
}

// ListMembers returns all memberships of a tenant ordered by user id.
func (s *Store) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]Member, error) {
	query := `
		SELECT tenant_id, user_id, role, added_at
		FROM tenant_members
		WHERE tenant_id = $1
		ORDER BY user_id
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var tid, uid, role string
		if err := rows.Scan(&tid, &uid, &role, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if m.TenantID, err = uuid.Parse(tid); err != nil {
			return nil, fmt.Errorf("invalid tenant id %q: %w", tid, err)
		}
		if m.UserID, err = uuid.Parse(uid); err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", uid, err)
		}
		if m.Role, err = ParseRole(role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountTenants returns the total number of tenants.
func (s *Store) CountTenants(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tenants: %w", err)
	}
	return n, nil
}
