package api

import (
	"net/http"
	"time"

	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/middleware"
)

type createTokenRequest struct {
	Name string `json:"name"`
	// TTL as a Go duration string; empty means no expiry
	TTL string `json:"ttl,omitempty"`
}

type createTokenResponse struct {
	// The plaintext token, shown exactly once
	Token string `json:"token"`

	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	TokenPrefix string     `json:"token_prefix"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// CreateToken handles POST /api/v1/tokens
func (h *Handlers) CreateToken(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req createTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	var ttl time.Duration
	if req.TTL != "" {
		var err error
		ttl, err = time.ParseDuration(req.TTL)
		if err != nil || ttl < 0 {
			httputil.WriteBadRequest(w, "invalid ttl")
			return
		}
	}

	plaintext, token, err := h.tokens.CreateToken(r.Context(), principal.ID, req.Name, ttl)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, createTokenResponse{
		Token:       plaintext,
		ID:          token.ID,
		Name:        token.Name,
		TokenPrefix: token.TokenPrefix,
		ExpiresAt:   token.ExpiresAt,
	})
}

// RevokeAPIToken handles DELETE /api/v1/tokens/{id}
func (h *Handlers) RevokeAPIToken(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	tokenID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.tokens.RevokeToken(r.Context(), principal.ID, tokenID); err != nil {
		httputil.WriteNotFound(w, "token not found")
		return
	}
	httputil.WriteNoContent(w)
}
