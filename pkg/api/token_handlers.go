package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/httputil"
	"github.com/opshub-io/opshub/pkg/middleware"
)

// requireSuperAdmin gates the token administration endpoints
func (s *Server) requireSuperAdmin(w http.ResponseWriter, r *http.Request) (ok bool) {
	identity, ok := middleware.GetIdentity(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return false
	}
	if !identity.SuperAdmin {
		httputil.WriteForbidden(w, "super admin access required")
		return false
	}
	return true
}

// createToken handles POST /api/v1/tokens
func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuperAdmin(w, r) {
		return
	}
	identity, _ := middleware.GetIdentity(r)

	var req TokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteValidationError(w, "name is required")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid expires_at")
			return
		}
		expiresAt = &t
	}

	token, raw, err := s.tokens.CreateToken(r.Context(), userID, req.Name, req.SuperAdmin, expiresAt)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.auditRec.TokenCreated(r.Context(), r, identity, token.TokenPrefix, token.Name)

	httputil.WriteCreated(w, TokenResponse{
		Token:       raw,
		TokenHash:   token.TokenHash,
		TokenPrefix: token.TokenPrefix,
		Name:        token.Name,
	})
}

// revokeToken handles DELETE /api/v1/tokens/{hash}
func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuperAdmin(w, r) {
		return
	}
	identity, _ := middleware.GetIdentity(r)

	hash, ok := httputil.ParsePathStringOrError(w, r, "hash")
	if !ok {
		return
	}

	if err := s.tokens.Revoke(r.Context(), hash); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.auditRec.TokenRevoked(r.Context(), r, identity, hash)
	httputil.WriteNoContent(w)
}
