// Package middleware provides HTTP middleware for authentication, tenant
// context, and rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: Bearer token authentication
//
//	authMW := middleware.NewAuthMiddleware(tokenManager, false)
//	router.Use(authMW.Handler)
//	// Extracts Bearer token, validates, adds Identity to request context
//
// TenantContextMiddleware: resolve {tenant_id} path variable
//
//	router.Use(middleware.TenantContextMiddleware(tenantStore))
//	// Loads the tenant record, 404 on unknown tenant
//
// RateLimitMiddleware: in-memory rate limiting keyed by identity or IP
//
//	rateMW := middleware.NewRateLimitMiddleware()
//	router.Use(rateMW.Handler)
//	router.Handle("/role-matrix", rateMW.WriteHandler(putMatrix)).Methods("PUT")
//
// DistributedRateLimitMiddleware: Redis-backed variant whose budgets are
// shared across every instance serving the API.
//
// # Ordering
//
// Auth must run before tenant context so tenant-scoped handlers can rely
// on both being present:
//
//	router.Use(authMW.Handler)
//	router.Use(middleware.TenantContextMiddleware(tenantStore))
//
// # Related Packages
//
//   - pkg/auth: token validation
//   - pkg/tenants: tenant lookup
//   - pkg/contextkeys: context propagation
package middleware
