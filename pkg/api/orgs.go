package api

import (
	"net/http"

	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/middleware"
	"github.com/cohorthq/cohort/pkg/orgs"
	"github.com/cohorthq/cohort/pkg/tenant"
)

// CreateOrganization handles POST /api/v1/organizations
func (h *Handlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req orgs.CreateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	org, err := h.orgs.CreateOrganization(r.Context(), &req, principal.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// The creator's first organization becomes their active one; refresh
	// the hint so the next request takes the fast path.
	tenant.WriteCookie(w, org.ID, h.cookieSecure)
	httputil.WriteCreated(w, org)
}

// ListOrganizations handles GET /api/v1/organizations
func (h *Handlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	list, err := h.orgs.ListOrganizations(r.Context(), principal.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// GetOrganization handles GET /api/v1/organizations/{id}
//
// Visible only to members; a non-member gets the same 404 as a missing
// organization so ids do not leak across tenants.
func (h *Handlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.orgs.GetMember(r.Context(), id, principal.ID); err != nil {
		httputil.WriteNotFound(w, orgs.ErrOrgNotFound.Error())
		return
	}

	org, err := h.orgs.GetOrganization(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// DeleteOrganization handles DELETE /api/v1/org/organization
//
// Deletes the active organization. Owner-gated by the router.
func (h *Handlers) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}

	if err := h.orgs.DeleteOrganization(r.Context(), orgID); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// SwitchOrganization handles POST /api/v1/organizations/{id}/switch
//
// Persists the switch in the session store first; the cookie is only a
// hint and is refreshed after the store accepts the change.
func (h *Handlers) SwitchOrganization(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	orgID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.resolver.SwitchActiveOrganization(r.Context(), principal.ID, orgID); err != nil {
		writeServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.TenantSwitchesTotal.Inc()
	}

	tenant.WriteCookie(w, orgID, h.cookieSecure)
	httputil.WriteSuccess(w, map[string]int64{"active_organization_id": orgID})
}
