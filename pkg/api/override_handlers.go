package api

import (
	"errors"
	"net/http"

	"github.com/opshub-io/opshub/pkg/access"
	"github.com/opshub-io/opshub/pkg/httputil"
	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// getOverrides handles GET /api/v1/tenants/{tenant_id}/users/{user_id}/module-overrides
func (s *Server) getOverrides(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromContext(w, r)
	if !ok {
		return
	}
	if _, ok := s.requireAccessManager(w, r, tenant); !ok {
		return
	}

	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
	if !ok {
		return
	}

	overrides, err := s.overrides.GetOverrides(r.Context(), tenant.ID, userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	payload := make([]OverridePayload, 0, len(overrides))
	for _, o := range overrides {
		payload = append(payload, OverridePayload{
			ModuleID:     string(o.ModuleID),
			OverrideType: string(o.Kind),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, payload)
}

// putOverrides handles PUT /api/v1/tenants/{tenant_id}/users/{user_id}/module-overrides
//
// Full replace: the body is the complete desired exception set for the
// user. Grants outside the enablement ceiling are stored but inert.
func (s *Server) putOverrides(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.tenantFromContext(w, r)
	if !ok {
		return
	}
	identity, ok := s.requireAccessManager(w, r, tenant)
	if !ok {
		return
	}

	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
	if !ok {
		return
	}

	var payload []OverridePayload
	if !httputil.ParseJSONOrError(w, r, &payload) {
		return
	}

	overrides := make([]access.Override, 0, len(payload))
	for _, p := range payload {
		moduleID, err := registry.ParseModuleID(p.ModuleID)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		kind, err := access.ParseOverrideKind(p.OverrideType)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		overrides = append(overrides, access.Override{ModuleID: moduleID, Kind: kind})
	}

	if err := s.overrides.SaveOverrides(r.Context(), tenant.ID, userID, overrides); err != nil {
		if errors.Is(err, tenants.ErrUserNotInTenant) {
			httputil.WriteForbidden(w, "target user does not belong to tenant")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if s.cache != nil {
		s.cache.InvalidateUser(r.Context(), tenant.ID, userID)
	}
	if s.metrics != nil {
		s.metrics.OverrideSavesTotal.Inc()
	}
	s.auditRec.OverridesSaved(r.Context(), r, identity, tenant.ID, userID, len(overrides))

	httputil.WriteNoContent(w)
}
