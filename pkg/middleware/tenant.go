package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/opshub-io/opshub/pkg/contextkeys"
	"github.com/opshub-io/opshub/pkg/httputil"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// TenantContextMiddleware resolves the tenant named by the {tenant_id}
// path variable and attaches it to the request context. A request without
// the variable passes through untouched; an unknown tenant is a 404, never
// an empty tenant.
func TenantContextMiddleware(store *tenants.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			vars := mux.Vars(r)
			raw, ok := vars["tenant_id"]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			tenantID, err := uuid.Parse(raw)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid tenant id")
				return
			}

			tenant, err := store.GetTenant(r.Context(), tenantID)
			if err != nil {
				if errors.Is(err, tenants.ErrTenantNotFound) {
					httputil.WriteNotFoundError(w, "tenant not found")
					return
				}
				httputil.WriteInternalError(w, err)
				return
			}

			ctx := contextkeys.WithTenant(r.Context(), tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenant extracts the resolved tenant from a request.
func GetTenant(r *http.Request) (*tenants.Tenant, bool) {
	return contextkeys.GetTenant(r.Context())
}
