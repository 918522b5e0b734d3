package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCConfig holds OIDC verifier configuration
type OIDCConfig struct {
	IssuerURL       string
	ClientID        string
	SkipIssuerCheck bool
}

// OIDCVerifier verifies OIDC ID tokens and resolves them to principals.
// Users are provisioned on first login, keyed by verified email.
type OIDCVerifier struct {
	db       *sql.DB
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the OIDC provider and creates a verifier
func NewOIDCVerifier(ctx context.Context, db *sql.DB, config *OIDCConfig) (*OIDCVerifier, error) {
	if config == nil || config.IssuerURL == "" {
		return nil, fmt.Errorf("OIDC issuer URL is required")
	}

	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifierConfig := &oidc.Config{
		ClientID:        config.ClientID,
		SkipIssuerCheck: config.SkipIssuerCheck,
	}

	return &OIDCVerifier{
		db:       db,
		verifier: provider.Verifier(verifierConfig),
	}, nil
}

// VerifyBearer verifies a raw ID token and returns the principal it
// identifies, provisioning the user row on first login.
//
// Any organization id present in the token claims is surfaced via
// Principal.Claims as a hint only. Tenant resolution treats it exactly
// like the session cookie: verify before trust.
func (v *OIDCVerifier) VerifyBearer(ctx context.Context, rawIDToken string) (*Principal, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("ID token is missing email claim")
	}

	var rawClaims map[string]any
	if err := idToken.Claims(&rawClaims); err != nil {
		return nil, fmt.Errorf("failed to parse raw claims: %w", err)
	}

	userID, err := v.ensureUser(ctx, claims.Email, claims.Name)
	if err != nil {
		return nil, err
	}

	return &Principal{
		ID:     userID,
		Email:  claims.Email,
		Claims: rawClaims,
	}, nil
}

// ensureUser provisions a user row on first login, keyed by email
func (v *OIDCVerifier) ensureUser(ctx context.Context, email, fullName string) (int64, error) {
	query := `
		INSERT INTO users (email, full_name, last_login_at)
		VALUES (LOWER($1), $2, NOW())
		ON CONFLICT (email) DO UPDATE
		SET last_login_at = NOW()
		RETURNING id
	`
	var userID int64
	if err := v.db.QueryRowContext(ctx, query, email, fullName).Scan(&userID); err != nil {
		return 0, fmt.Errorf("failed to provision user: %w", err)
	}
	return userID, nil
}
