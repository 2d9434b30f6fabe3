package tenants

import "errors"

var (
	// ErrTenantNotFound means the tenant record does not exist. A missing
	// tenant is never reported as an empty module set: "found but
	// disabled" and "not found" must stay distinguishable.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrUserNotInTenant means the target user has no membership row in
	// the tenant. Raised instead of silently creating cross-tenant rows.
	ErrUserNotInTenant = errors.New("user does not belong to tenant")
)
