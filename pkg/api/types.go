package api

import (
	"sort"

	"github.com/opshub-io/opshub/pkg/access"
	"github.com/opshub-io/opshub/pkg/registry"
	"github.com/opshub-io/opshub/pkg/tenants"
)

// MatrixPayload is the wire form of a tenant's role matrix
type MatrixPayload struct {
	Mode   string                         `json:"mode"`
	Matrix map[string][]registry.ModuleID `json:"matrix"`
}

// MatrixRequest is the PUT body for a full-replace matrix save
type MatrixRequest struct {
	Matrix map[string][]string `json:"matrix"`
}

// OverridePayload is the wire form of a single per-user exception
type OverridePayload struct {
	ModuleID     string `json:"moduleId"`
	OverrideType string `json:"overrideType"`
}

// TokenRequest is the POST body for minting an API token
type TokenRequest struct {
	Name       string `json:"name"`
	UserID     string `json:"user_id"`
	SuperAdmin bool   `json:"super_admin"`
	// ExpiresAt is optional RFC3339; empty means no expiry
	ExpiresAt string `json:"expires_at,omitempty"`
}

// TokenResponse returns the raw token exactly once
type TokenResponse struct {
	Token       string `json:"token"`
	TokenHash   string `json:"token_hash"`
	TokenPrefix string `json:"token_prefix"`
	Name        string `json:"name"`
}

// matrixPayload converts a stored matrix to its wire form, with
// deterministic module ordering per role
func matrixPayload(mode access.Mode, matrix access.RoleMatrix) MatrixPayload {
	out := MatrixPayload{
		Mode:   string(mode),
		Matrix: make(map[string][]registry.ModuleID, len(matrix)),
	}
	for role, set := range matrix {
		ids := set.IDs()
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out.Matrix[string(role)] = ids
	}
	return out
}

// parseMatrixRequest validates the PUT body into store form
func parseMatrixRequest(req MatrixRequest) (map[tenants.Role][]registry.ModuleID, error) {
	matrix := make(map[tenants.Role][]registry.ModuleID, len(req.Matrix))
	for rawRole, rawIDs := range req.Matrix {
		role, err := tenants.ParseRole(rawRole)
		if err != nil {
			return nil, err
		}
		ids := make([]registry.ModuleID, 0, len(rawIDs))
		for _, raw := range rawIDs {
			id, err := registry.ParseModuleID(raw)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		matrix[role] = ids
	}
	return matrix, nil
}

// accessModeFor derives the wire mode from row existence
func accessModeFor(customized bool) access.Mode {
	if customized {
		return access.ModeCustom
	}
	return access.ModeDefault
}
