package middleware

import (
	"net/http"

	"github.com/cohorthq/cohort/pkg/auth"
	"github.com/cohorthq/cohort/pkg/httputil"
	"github.com/cohorthq/cohort/pkg/orgs"
)

// RequireRole gates a handler on the caller holding at least the given
// role in the active organization. Requires auth and tenant middleware to
// have run first.
//
// This is a coarse route gate; operations with finer rules (the owner
// tier, the last-owner invariant) re-check inside their transaction, where
// the answer is race-free.
func RequireRole(service orgs.Service, role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r)
			if principal == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			orgID, ok := GetActiveOrg(r)
			if !ok {
				httputil.WriteForbidden(w, "no active organization")
				return
			}

			member, err := service.GetMember(r.Context(), orgID, principal.ID)
			if err != nil {
				httputil.WriteForbidden(w, "not a member of this organization")
				return
			}
			if !member.Role.AtLeast(role) {
				httputil.WriteForbidden(w, "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
