package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// TokenPrefix identifies Opshub tokens
	TokenPrefix = "oph_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32

	// cacheSize bounds the validated-token cache; cacheTTL bounds how long
	// a revocation can lag behind on a single node.
	cacheSize = 4096
	cacheTTL  = time.Minute
)

// TokenGenerator generates and validates API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token.
// Format: oph_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	hash := sha256.Sum256([]byte(fullToken))
	hashStr := hex.EncodeToString(hash[:])

	// First 8 chars after the prefix are enough to identify a token in
	// listings without exposing it.
	prefix := TokenPrefix
	if len(encodedToken) >= 8 {
		prefix = TokenPrefix + encodedToken[:8]
	}

	return fullToken, hashStr, prefix, nil
}

// HashToken computes the SHA256 hash of a token for lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("token is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}

	return nil
}

// TokenStore persists API tokens.
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore creates a new token store.
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// CreateToken inserts a token record.
func (s *TokenStore) CreateToken(ctx context.Context, t *APIToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_tokens (token_hash, token_prefix, name, user_id, super_admin, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.TokenHash, t.TokenPrefix, t.Name, t.UserID.String(), t.SuperAdmin, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetByHash fetches a token by its hash.
func (s *TokenStore) GetByHash(ctx context.Context, tokenHash string) (*APIToken, error) {
	var t APIToken
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, token_prefix, name, user_id, super_admin, expires_at, last_used_at, created_at, revoked_at
		 FROM api_tokens
		 WHERE token_hash = $1`,
		tokenHash,
	).Scan(&t.TokenHash, &t.TokenPrefix, &t.Name, &userID, &t.SuperAdmin,
		&t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt, &t.RevokedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	t.UserID, err = uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("corrupt token row: %w", err)
	}
	return &t, nil
}

// Revoke marks a token revoked. Revoking an already-revoked token is a
// no-op.
func (s *TokenStore) Revoke(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_tokens SET revoked_at = $1 WHERE token_hash = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), tokenHash,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// TouchLastUsed records token usage.
func (s *TokenStore) TouchLastUsed(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_tokens SET last_used_at = $1 WHERE token_hash = $2`,
		time.Now().UTC(), tokenHash,
	)
	return err
}

// CountActive returns the number of currently usable tokens.
func (s *TokenStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM api_tokens
		 WHERE revoked_at IS NULL AND (expires_at IS NULL OR expires_at > $1)`,
		time.Now().UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return n, nil
}

// TokenManager authenticates raw tokens against the store, with a small
// expirable cache in front so the hot path skips the database. The TTL
// bounds revocation lag on a single node; a revoked token can be accepted
// for at most cacheTTL after the revoke lands.
type TokenManager struct {
	generator *TokenGenerator
	store     *TokenStore
	cache     *lru.LRU[string, Identity]
}

// NewTokenManager creates a token manager over the store.
func NewTokenManager(store *TokenStore) *TokenManager {
	return &TokenManager{
		generator: NewTokenGenerator(),
		store:     store,
		cache:     lru.NewLRU[string, Identity](cacheSize, nil, cacheTTL),
	}
}

// CreateToken mints and persists a token for the user. The raw token is
// returned once and never stored.
func (tm *TokenManager) CreateToken(ctx context.Context, userID uuid.UUID, name string, superAdmin bool, expiresAt *time.Time) (*APIToken, string, error) {
	token, tokenHash, tokenPrefix, err := tm.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	apiToken := &APIToken{
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
		UserID:      userID,
		SuperAdmin:  superAdmin,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tm.store.CreateToken(ctx, apiToken); err != nil {
		return nil, "", err
	}
	return apiToken, token, nil
}

// Authenticate validates a raw token and returns the caller's identity.
// Invalid, revoked, and expired tokens all return ErrUnauthenticated;
// store failures surface as errors and are never cached.
func (tm *TokenManager) Authenticate(ctx context.Context, token string) (Identity, error) {
	if err := tm.generator.ValidateTokenFormat(token); err != nil {
		return Identity{}, ErrUnauthenticated
	}

	tokenHash := tm.generator.HashToken(token)
	if identity, ok := tm.cache.Get(tokenHash); ok {
		return identity, nil
	}

	apiToken, err := tm.store.GetByHash(ctx, tokenHash)
	if err != nil {
		return Identity{}, err
	}
	if !apiToken.Active(time.Now().UTC()) {
		return Identity{}, ErrUnauthenticated
	}

	if err := tm.store.TouchLastUsed(ctx, tokenHash); err != nil {
		// Usage tracking is best-effort.
		_ = err
	}

	identity := Identity{UserID: apiToken.UserID, SuperAdmin: apiToken.SuperAdmin}
	tm.cache.Add(tokenHash, identity)
	return identity, nil
}

// Revoke revokes a token and drops it from the cache.
func (tm *TokenManager) Revoke(ctx context.Context, tokenHash string) error {
	if err := tm.store.Revoke(ctx, tokenHash); err != nil {
		return err
	}
	tm.cache.Remove(tokenHash)
	return nil
}
