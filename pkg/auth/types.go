package auth

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated caller. Tenant-level roles are not part
// of the identity; they are membership lookups resolved per request.
// SuperAdmin is a platform-level flag carried by the token itself.
type Identity struct {
	UserID     uuid.UUID `json:"user_id"`
	SuperAdmin bool      `json:"super_admin"`
}

// APIToken is a stored API token. The raw token is returned exactly once
// at creation and never persisted; lookups go through the SHA-256 hash.
type APIToken struct {
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	UserID      uuid.UUID  `json:"user_id"`
	SuperAdmin  bool       `json:"super_admin"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the token is currently usable.
func (t *APIToken) Active(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
		return false
	}
	return true
}
