package middleware

import (
	"net/http"
	"strings"

	"github.com/cohorthq/cohort/pkg/auth"
	"github.com/cohorthq/cohort/pkg/contextkeys"
	"github.com/cohorthq/cohort/pkg/httputil"
)

// AuthMiddleware authenticates requests. Tokens carrying the API-token
// prefix are validated against the token store; anything else on the
// Bearer header is treated as an OIDC ID token when a verifier is
// configured.
type AuthMiddleware struct {
	tokenManager *auth.TokenManager
	oidcVerifier *auth.OIDCVerifier
}

// NewAuthMiddleware creates a new authentication middleware. The OIDC
// verifier may be nil, which restricts authentication to API tokens.
func NewAuthMiddleware(tokenManager *auth.TokenManager, oidcVerifier *auth.OIDCVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		tokenManager: tokenManager,
		oidcVerifier: oidcVerifier,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}
		token := parts[1]

		var principal *auth.Principal
		var err error
		if strings.HasPrefix(token, auth.TokenPrefix) {
			principal, err = m.tokenManager.ValidateToken(r.Context(), token)
		} else if m.oidcVerifier != nil {
			principal, err = m.oidcVerifier.VerifyBearer(r.Context(), token)
		} else {
			httputil.WriteUnauthorized(w, "invalid token")
			return
		}
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPrincipal extracts the authenticated principal from the request
func GetPrincipal(r *http.Request) *auth.Principal {
	principal, ok := r.Context().Value(contextkeys.PrincipalKey).(*auth.Principal)
	if !ok {
		return nil
	}
	return principal
}
