package api

import (
	"net/http"

	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/middleware"
)

type companyRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// CreateCompany handles POST /api/v1/org/companies
func (h *Handlers) CreateCompany(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}

	var req companyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	company, err := h.companies.Create(r.Context(), orgID, req.Name, req.Domain)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, company)
}

// ListCompanies handles GET /api/v1/org/companies
func (h *Handlers) ListCompanies(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}

	companies, err := h.companies.List(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, companies)
}

// GetCompany handles GET /api/v1/org/companies/{id}
func (h *Handlers) GetCompany(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}
	companyID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	company, err := h.companies.Get(r.Context(), orgID, companyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, company)
}

// UpdateCompany handles PUT /api/v1/org/companies/{id}
func (h *Handlers) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}
	companyID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req companyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	company, err := h.companies.Update(r.Context(), orgID, companyID, req.Name, req.Domain)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, company)
}

// DeleteCompany handles DELETE /api/v1/org/companies/{id}
func (h *Handlers) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetActiveOrg(r)
	if !ok {
		httputil.WriteForbidden(w, "no active organization")
		return
	}
	companyID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.companies.Delete(r.Context(), orgID, companyID); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
