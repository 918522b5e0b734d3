package api

import (
	"net/http"

	"github.com/cohorthq/cohort/pkg/auth"
	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/middleware"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ListMembers handles GET /api/v1/org/members
func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}

	members, err := h.orgs.ListMembers(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

// ChangeRole handles PUT /api/v1/org/members/{userID}/role
//
// The response body is always the structured result; a rejected change
// carries success=false plus the rule that blocked it, under the status
// the rule maps to, so clients can render a precise message.
func (h *Handlers) ChangeRole(w http.ResponseWriter, r *http.Request) {
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
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userID")
	if !ok {
		return
	}

	var req changeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role := auth.Role(req.Role)
	if !role.Valid() {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}

	result, err := h.orgs.ChangeRole(r.Context(), principal.ID, orgID, targetID, role)
	if h.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "rejected"
		}
		h.metrics.RoleChangesTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		if result != nil {
			httputil.WriteJSON(w, statusForError(err), result)
			return
		}
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// RemoveMember handles DELETE /api/v1/org/members/{userID}
func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
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
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "userID")
	if !ok {
		return
	}

	err := h.orgs.RemoveMember(r.Context(), principal.ID, orgID, targetID)
	if h.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "rejected"
		}
		h.metrics.MemberRemovalsTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
