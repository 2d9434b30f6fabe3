// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/opshub-io/opshub/pkg/contextkeys"
//	ctx = contextkeys.WithIdentity(ctx, identity)
//	identity, ok := contextkeys.GetIdentity(ctx)
package contextkeys

import (
	"context"

	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains auth.Identity
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: all protected API endpoints
	IdentityKey Key = "identity"

	// TenantKey contains *tenants.Tenant
	// Set by: middleware.TenantContextMiddleware (pkg/middleware/tenant.go)
	// Required by: tenant-scoped endpoints
	TenantKey Key = "tenant"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil request-id middleware
	// Used by: logger, audit trail, distributed tracing
	RequestIDKey Key = "request_id"
)

// WithIdentity adds the authenticated identity to the context
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity retrieves the authenticated identity from context
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(auth.Identity)
	return identity, ok
}

// WithTenant adds the resolved tenant to the context
func WithTenant(ctx context.Context, tenant *tenants.Tenant) context.Context {
	return context.WithValue(ctx, TenantKey, tenant)
}

// GetTenant retrieves the resolved tenant from context
func GetTenant(ctx context.Context) (*tenants.Tenant, bool) {
	tenant, ok := ctx.Value(TenantKey).(*tenants.Tenant)
	return tenant, ok
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
