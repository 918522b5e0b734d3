package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cohorthq/cohort/pkg/auth"
	"github.com/cohorthq/cohort/pkg/middleware"
	"github.com/cohorthq/cohort/pkg/orgs"
)

// RouterConfig carries the middleware the router composes around the
// handlers.
type RouterConfig struct {
	Auth   *middleware.AuthMiddleware
	Tenant *middleware.TenantMiddleware
	Orgs   orgs.Service

	// Outermost to innermost, applied to every route (request id,
	// logging, metrics, recovery).
	Base []func(http.Handler) http.Handler
}

// NewRouter assembles the full API surface.
//
// Two tiers: authenticated routes that work without an active
// organization (creating or listing organizations, switching, accepting
// an invitation), and tenant-scoped routes under /api/v1/org that only
// exist inside the resolved organization.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	authed := func(next http.HandlerFunc) http.Handler {
		return cfg.Auth.Handler(next)
	}
	scoped := func(next http.Handler) http.Handler {
		return cfg.Auth.Handler(cfg.Tenant.Handler(next))
	}
	withRole := func(role auth.Role, next http.HandlerFunc) http.Handler {
		return scoped(middleware.RequireRole(cfg.Orgs, role)(next))
	}

	// Organization lifecycle and session
	r.Handle("/api/v1/organizations", authed(h.CreateOrganization)).Methods("POST")
	r.Handle("/api/v1/organizations", authed(h.ListOrganizations)).Methods("GET")
	r.Handle("/api/v1/organizations/{id}", authed(h.GetOrganization)).Methods("GET")
	r.Handle("/api/v1/organizations/{id}/switch", authed(h.SwitchOrganization)).Methods("POST")
	r.Handle("/api/v1/invitations/accept", authed(h.AcceptInvitation)).Methods("POST")
	r.Handle("/api/v1/tokens", authed(h.CreateToken)).Methods("POST")
	r.Handle("/api/v1/tokens/{id}", authed(h.RevokeAPIToken)).Methods("DELETE")

	// Active-organization surface
	r.Handle("/api/v1/org/organization", withRole(auth.RoleOwner, h.DeleteOrganization)).Methods("DELETE")
	r.Handle("/api/v1/org/members", scoped(http.HandlerFunc(h.ListMembers))).Methods("GET")
	r.Handle("/api/v1/org/members/{userID}/role", scoped(http.HandlerFunc(h.ChangeRole))).Methods("PUT")
	r.Handle("/api/v1/org/members/{userID}", scoped(http.HandlerFunc(h.RemoveMember))).Methods("DELETE")

	r.Handle("/api/v1/org/invitations", withRole(auth.RoleAdmin, h.CreateInvitation)).Methods("POST")
	r.Handle("/api/v1/org/invitations", withRole(auth.RoleAdmin, h.ListInvitations)).Methods("GET")
	r.Handle("/api/v1/org/invitations/{id}", withRole(auth.RoleAdmin, h.RevokeInvitation)).Methods("DELETE")

	r.Handle("/api/v1/org/companies", withRole(auth.RoleEditor, h.CreateCompany)).Methods("POST")
	r.Handle("/api/v1/org/companies", scoped(http.HandlerFunc(h.ListCompanies))).Methods("GET")
	r.Handle("/api/v1/org/companies/{id}", scoped(http.HandlerFunc(h.GetCompany))).Methods("GET")
	r.Handle("/api/v1/org/companies/{id}", withRole(auth.RoleEditor, h.UpdateCompany)).Methods("PUT")
	r.Handle("/api/v1/org/companies/{id}", withRole(auth.RoleEditor, h.DeleteCompany)).Methods("DELETE")

	var handler http.Handler = r
	for i := len(cfg.Base) - 1; i >= 0; i-- {
		handler = cfg.Base[i](handler)
	}
	return handler
}
