package api

import (
	"errors"
	"net/http"

	"github.com/opshub-io/opshub/pkg/access"
	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/httputil"
	"github.com/opshub-io/opshub/pkg/middleware"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// requireAccessManager allows the write through for super admins and
// tenant owners/admins; everyone else gets a 403 and an audit entry.
func (s *Server) requireAccessManager(w http.ResponseWriter, r *http.Request, tenant *tenants.Tenant) (auth.Identity, bool) {
	identity, ok := middleware.GetIdentity(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return auth.Identity{}, false
	}
	if identity.SuperAdmin {
		return identity, true
	}

	role, err := s.tenants.MemberRole(r.Context(), tenant.ID, identity.UserID)
	if err != nil {
		if errors.Is(err, tenants.ErrUserNotInTenant) {
			s.auditRec.AccessDenied(r.Context(), r, identity, tenant.ID, "caller is not a tenant member")
			httputil.WriteError(w, http.StatusForbidden, access.ErrNotTenantMember)
			return auth.Identity{}, false
		}
		httputil.WriteInternalError(w, err)
		return auth.Identity{}, false
	}
	if !role.CanManageAccess() {
		s.auditRec.AccessDenied(r.Context(), r, identity, tenant.ID, "role cannot manage access")
		httputil.WriteError(w, http.StatusForbidden, access.ErrCannotManageAccess)
		return auth.Identity{}, false
	}

	return identity, true
}

// tenantFromContext fetches the tenant resolved by the middleware
func (s *Server) tenantFromContext(w http.ResponseWriter, r *http.Request) (*tenants.Tenant, bool) {
	tenant, ok := middleware.GetTenant(r)
	if !ok {
		httputil.WriteInternalError(w, errors.New("tenant missing from request context"))
		return nil, false
	}
	return tenant, true
}

// getMatrix handles GET /api/v1/tenants/{tenant_id}/role-matrix
func (s *Server) getMatrix(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromContext(w, r)
	if !ok {
		return
	}
	if _, ok := s.requireAccessManager(w, r, tenant); !ok {
		return
	}

	matrix, customized, err := s.matrix.GetMatrix(r.Context(), tenant.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	mode := accessModeFor(customized)
	httputil.WriteJSON(w, http.StatusOK, matrixPayload(mode, matrix))
}

// putMatrix handles PUT /api/v1/tenants/{tenant_id}/role-matrix
//
// The body is the complete desired matrix; rows absent from it are
// deleted. An empty matrix returns the tenant to default mode.
func (s *Server) putMatrix(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromContext(w, r)
	if !ok {
		return
	}
	identity, ok := s.requireAccessManager(w, r, tenant)
	if !ok {
		return
	}

	var req MatrixRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	matrix, err := parseMatrixRequest(req)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := s.matrix.SaveMatrix(r.Context(), tenant.ID, matrix); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if s.cache != nil {
		s.cache.InvalidateTenant(r.Context(), tenant.ID)
	}

	mode := accessModeFor(len(matrix) > 0)
	if s.metrics != nil {
		s.metrics.MatrixSavesTotal.WithLabelValues(string(mode)).Inc()
	}
	s.auditRec.MatrixSaved(r.Context(), r, identity, tenant.ID, string(mode), len(matrix))

	saved, customized, err := s.matrix.GetMatrix(r.Context(), tenant.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, matrixPayload(accessModeFor(customized), saved))
}
