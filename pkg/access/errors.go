package access

import (
	"errors"
	"fmt"
)

// ErrForbidden means the caller's identity is known but its role may not
// perform the operation. Authorization failures surface as explicit
// errors; they are never downgraded to a smaller (or empty) result set.
var ErrForbidden = errors.New("forbidden")

// Concrete authorization failures. Each wraps ErrForbidden so callers can
// match the whole class with errors.Is.
var (
	// ErrNotTenantMember means the caller has no membership in the tenant.
	ErrNotTenantMember = fmt.Errorf("%w: user does not belong to tenant", ErrForbidden)

	// ErrCannotManageAccess means the caller's role may not edit the
	// tenant's role matrix or user overrides.
	ErrCannotManageAccess = fmt.Errorf("%w: role cannot manage access", ErrForbidden)
)
