package api

import (
	"errors"
	"net/http"

	"github.com/cohorthq/cohort/pkg/auth"
	"github.com/cohorthq/cohort/pkg/crm"
	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/observability"
	"github.com/cohorthq/cohort/pkg/orgs"
	"github.com/cohorthq/cohort/pkg/tenant"
)

// Handlers provides the HTTP handlers for the tenant and CRM API
type Handlers struct {
	orgs         orgs.Service
	resolver     *tenant.Resolver
	companies    *crm.CachedStore
	tokens       *auth.TokenManager
	metrics      *observability.Metrics
	cookieSecure bool
}

// NewHandlers creates new API handlers. metrics may be nil in tests.
func NewHandlers(service orgs.Service, resolver *tenant.Resolver, companies *crm.CachedStore, tokens *auth.TokenManager, metrics *observability.Metrics, cookieSecure bool) *Handlers {
	return &Handlers{
		orgs:         service,
		resolver:     resolver,
		companies:    companies,
		tokens:       tokens,
		metrics:      metrics,
		cookieSecure: cookieSecure,
	}
}

// statusForError maps the business-rule sentinels onto HTTP statuses.
// Anything unrecognized is a storage failure and reported as 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, orgs.ErrOrgNotFound),
		errors.Is(err, orgs.ErrNotAMember),
		errors.Is(err, orgs.ErrInvalidToken),
		errors.Is(err, crm.ErrCompanyNotFound):
		return http.StatusNotFound
	case errors.Is(err, orgs.ErrInsufficientRole),
		errors.Is(err, orgs.ErrEmailMismatch):
		return http.StatusForbidden
	case errors.Is(err, orgs.ErrSelfModification):
		return http.StatusBadRequest
	case errors.Is(err, orgs.ErrAlreadyMember),
		errors.Is(err, orgs.ErrLastOwnerViolation),
		errors.Is(err, orgs.ErrInvitationAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, orgs.ErrInvitationExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteErrorMessage(w, status, err.Error())
}
