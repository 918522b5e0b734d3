package api

import (
	"net/http"

	"github.com/cohorthq/cohort/pkg/auth"
	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/middleware"
	"github.com/cohorthq/cohort/pkg/tenant"
)

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type acceptInvitationRequest struct {
	Token string `json:"token"`
}

// CreateInvitation handles POST /api/v1/org/invitations
func (h *Handlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}

	var req createInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	role := auth.Role(req.Role)
	if !role.Valid() {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}

	invitation, err := h.orgs.CreateInvitation(r.Context(), principal.ID, orgID, req.Email, role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.InvitationsTotal.WithLabelValues("created").Inc()
	}
	httputil.WriteCreated(w, invitation)
}

// ListInvitations handles GET /api/v1/org/invitations
//
// Pending invitations only; tokens are never echoed back on list.
func (h *Handlers) ListInvitations(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}

	invitations, err := h.orgs.ListInvitations(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, invitations)
}

// AcceptInvitation handles POST /api/v1/invitations/accept
//
// Runs outside tenant resolution: the accepting principal may hold no
// membership at all yet. On success the accepted organization becomes
// the principal's active one, so the cookie is refreshed here.
func (h *Handlers) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req acceptInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Token, "token") {
		return
	}

	invitation, err := h.orgs.AcceptInvitation(r.Context(), principal, req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.InvitationsTotal.WithLabelValues("accepted").Inc()
	}

	tenant.WriteCookie(w, invitation.OrganizationID, h.cookieSecure)
	httputil.WriteSuccess(w, invitation)
}

// RevokeInvitation handles DELETE /api/v1/org/invitations/{id}
func (h *Handlers) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	invitationID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.orgs.RevokeInvitation(r.Context(), principal.ID, invitationID); err != nil {
		writeServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.InvitationsTotal.WithLabelValues("revoked").Inc()
	}
	httputil.WriteNoContent(w)
}
