package access

import (
	"fmt"

	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"

	"github.com/google/uuid"
)

// OverrideKind is the direction of a per-user module exception.
type OverrideKind string

const (
	// OverrideGrant restores visibility of a module the role matrix hides.
	// A grant never pierces the tenant enablement ceiling.
	OverrideGrant OverrideKind = "grant"

	// OverrideRevoke hides a module unconditionally for the user.
	// Revoke dominates grant whenever both are present.
	OverrideRevoke OverrideKind = "revoke"
)

// ParseOverrideKind validates a raw override type.
func ParseOverrideKind(raw string) (OverrideKind, error) {
	switch k := OverrideKind(raw); k {
	case OverrideGrant, OverrideRevoke:
		return k, nil
	default:
		return "", fmt.Errorf("unknown override type %q", raw)
	}
}

// Override is a per-user module exception applied on top of role-matrix
// resolution. Unique per (user, tenant, module).
type Override struct {
	ModuleID registry.ModuleID `json:"module_id"`
	Kind     OverrideKind      `json:"override_type"`
}

// RoleMatrix maps each tenant role to the modules it may see. Only roles
// with at least one explicit row appear as keys.
type RoleMatrix map[tenants.Role]registry.ModuleSet

// Mode is a tenant's role-matrix mode. It is written transactionally with
// every matrix save; row existence remains the source of truth on reads.
type Mode string

const (
	// ModeDefault: every role sees every tenant-enabled module.
	ModeDefault Mode = "default"

	// ModeCustom: a role sees only the modules explicitly rowed for it;
	// a role with zero rows sees zero modules from the matrix. The switch
	// is tenant-wide and all-or-nothing.
	ModeCustom Mode = "custom"
)

// Subject is the caller being resolved: a user with a tenant membership
// role, or the platform super-admin which bypasses resolution entirely.
type Subject struct {
	UserID     uuid.UUID
	Role       tenants.Role
	SuperAdmin bool
}
