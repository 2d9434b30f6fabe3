package tenants

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/registry"
)

// Role is a tenant-level membership role. The platform super-admin is not
// a Role: it is an identity flag that bypasses tenant access resolution
// entirely.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleViewer   Role = "viewer"
)

// AllRoles lists every tenant role in privilege order.
func AllRoles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleManager, RoleEmployee, RoleViewer}
}

// ParseRole validates a raw role name.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleOwner, RoleAdmin, RoleManager, RoleEmployee, RoleViewer:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// CanManageAccess reports whether the role may edit the tenant's role
// matrix and user overrides.
func (r Role) CanManageAccess() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Status is a tenant lifecycle status.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Tenant is an isolated customer organization ("company").
//
// TemplateID references a curated module bundle in the platform registry.
// FeatureKeys is the pre-template-era fallback grant mechanism; tenants
// provisioned after template curation carry an empty set.
type Tenant struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	TemplateID  registry.TemplateID `json:"template_id,omitempty"`
	FeatureKeys []string            `json:"feature_keys,omitempty"`
	Status      Status              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Member is a user's membership in a tenant.
type Member struct {
	TenantID uuid.UUID `json:"tenant_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	AddedAt  time.Time `json:"added_at"`
}
