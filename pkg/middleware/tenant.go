package middleware

import (
	"errors"
	"net/http"

	"github.com/cohorthq/cohort/pkg/contextkeys"
	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/observability"
	"github.com/cohorthq/cohort/pkg/tenant"
)

// TenantMiddleware resolves the active organization exactly once per
// request and stores it in the context. Handlers read the resolved value;
// they never re-resolve mid-request, so a concurrent organization switch
// cannot split one request across two tenants.
type TenantMiddleware struct {
	resolver     *tenant.Resolver
	metrics      *observability.Metrics
	cookieSecure bool
}

// NewTenantMiddleware creates a new tenant resolution middleware. Metrics
// may be nil.
func NewTenantMiddleware(resolver *tenant.Resolver, metrics *observability.Metrics, cookieSecure bool) *TenantMiddleware {
	return &TenantMiddleware{
		resolver:     resolver,
		metrics:      metrics,
		cookieSecure: cookieSecure,
	}
}

// Handler wraps an HTTP handler with tenant resolution. Requires the
// authentication middleware to have run first.
func (m *TenantMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipal(r)
		if principal == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		hint := tenant.ReadCookieHint(r)
		orgID, source, err := m.resolver.ResolveActiveOrganization(r.Context(), principal.ID, hint)
		if err != nil {
			if errors.Is(err, tenant.ErrNoMembership) {
				if m.metrics != nil {
					m.metrics.TenantResolutionErrors.WithLabelValues("no_membership").Inc()
				}
				httputil.WriteForbidden(w, "no organization membership")
				return
			}
			if m.metrics != nil {
				m.metrics.TenantResolutionErrors.WithLabelValues("storage").Inc()
			}
			observability.FromContext(r.Context()).WithError(err).Error("tenant resolution failed")
			httputil.WriteInternalError(w, errors.New("failed to resolve organization"))
			return
		}

		if m.metrics != nil {
			m.metrics.TenantResolutionsTotal.WithLabelValues(string(source)).Inc()
		}

		// Refresh the hint whenever it did not answer, so the next
		// request takes the fast path
		if source != tenant.SourceCookie {
			tenant.WriteCookie(w, orgID, m.cookieSecure)
		}

		ctx := contextkeys.WithActiveOrg(r.Context(), orgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActiveOrg extracts the resolved organization from the request
func GetActiveOrg(r *http.Request) (int64, bool) {
	return contextkeys.GetActiveOrg(r.Context())
}
