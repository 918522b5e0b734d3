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

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// TokenPrefix identifies cohort API tokens
	TokenPrefix = "cohort_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32

	// principalCacheSize bounds the validated-token cache
	principalCacheSize = 4096
	// principalCacheTTL keeps cached principals short-lived so revocation
	// takes effect quickly. Only identity is cached here; the active
	// organization is never cached in-process (see pkg/tenant).
	principalCacheTTL = 30 * time.Second
)

// TokenGenerator generates and validates API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token
// Format: cohort_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	// SHA256 hash for storage; plaintext is shown to the caller once
	hash := sha256.Sum256([]byte(fullToken))
	hashStr := hex.EncodeToString(hash[:])

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

// TokenManager validates API tokens against the database and resolves them
// to principals. One validation per request; a short-TTL LRU avoids a
// database round trip for hot tokens.
type TokenManager struct {
	db        *sql.DB
	generator *TokenGenerator
	cache     *expirable.LRU[string, *Principal]
}

// NewTokenManager creates a new token manager
func NewTokenManager(db *sql.DB) *TokenManager {
	return &TokenManager{
		db:        db,
		generator: NewTokenGenerator(),
		cache:     expirable.NewLRU[string, *Principal](principalCacheSize, nil, principalCacheTTL),
	}
}

// CreateToken issues a new API token for a user. The plaintext token is
// returned exactly once; only the hash is stored.
func (tm *TokenManager) CreateToken(ctx context.Context, userID int64, name string, ttl time.Duration) (string, *APIToken, error) {
	plaintext, tokenHash, tokenPrefix, err := tm.generator.GenerateToken()
	if err != nil {
		return "", nil, err
	}

	token := &APIToken{
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
		token.ExpiresAt = expiresAt
	}

	query := `
		INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err = tm.db.QueryRowContext(ctx, query, userID, tokenHash, tokenPrefix, name, expiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token: %w", err)
	}

	return plaintext, token, nil
}

// ValidateToken resolves a bearer token to a verified principal.
// Returns an error for malformed, unknown, revoked, or expired tokens.
func (tm *TokenManager) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	if err := tm.generator.ValidateTokenFormat(token); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	tokenHash := tm.generator.HashToken(token)
	if principal, ok := tm.cache.Get(tokenHash); ok {
		return principal, nil
	}

	query := `
		SELECT u.id, u.email
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
		  AND t.revoked_at IS NULL
		  AND (t.expires_at IS NULL OR t.expires_at > NOW())
		  AND u.is_active = true
	`
	principal := &Principal{}
	err := tm.db.QueryRowContext(ctx, query, tokenHash).Scan(&principal.ID, &principal.Email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invalid or expired token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	// Best effort; validation already succeeded
	_, _ = tm.db.ExecContext(ctx,
		`UPDATE api_tokens SET last_used_at = NOW() WHERE token_hash = $1`, tokenHash)

	tm.cache.Add(tokenHash, principal)
	return principal, nil
}

// RevokeToken revokes one of the user's tokens by id. Tokens belonging to
// other users are indistinguishable from missing ones.
func (tm *TokenManager) RevokeToken(ctx context.Context, userID, tokenID int64) error {
	result, err := tm.db.ExecContext(ctx,
		`UPDATE api_tokens SET revoked_at = NOW() WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL`,
		tokenID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("token not found or already revoked")
	}

	return nil
}
