// Package auth issues and validates API tokens and derives the caller's
// identity.
//
// # Tokens
//
// Tokens are opaque bearer strings of the form oph_<base64url(32 bytes)>.
// Only the SHA-256 hash is stored; the raw token is returned exactly once
// at creation. A token carries the owning user id and an optional platform
// super-admin flag. Tenant roles are never part of the token: they are
// membership lookups made per request against the tenant the caller is
// addressing.
//
// # Validation
//
//	store := auth.NewTokenStore(db)
//	manager := auth.NewTokenManager(store)
//
//	identity, err := manager.Authenticate(ctx, rawToken)
//	if errors.Is(err, auth.ErrUnauthenticated) {
//		// 401
//	}
//
// Validated identities are held in an expirable LRU for a short TTL, so
// the hot path skips the database. The TTL bounds how long a revocation
// can lag on a single node.
package auth
