package middleware

import (
	"net/http"
	"strings"

	"github.com/opshub-io/opshub/pkg/auth"
	"github.com/opshub-io/opshub/pkg/contextkeys"
	"github.com/opshub-io/opshub/pkg/httputil"
)

// AuthMiddleware authenticates requests via Bearer tokens.
type AuthMiddleware struct {
	tokenManager *auth.TokenManager
	optional     bool // if true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(tokenManager *auth.TokenManager, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokenManager: tokenManager,
		optional:     optional,
	}
}

// Handler wraps an HTTP handler with authentication. A missing or invalid
// token yields 401 with a JSON body; it never falls through to the handler
// with a zero identity.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		identity, err := m.tokenManager.Authenticate(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentity extracts the authenticated identity from a request.
func GetIdentity(r *http.Request) (auth.Identity, bool) {
	return contextkeys.GetIdentity(r.Context())
}
