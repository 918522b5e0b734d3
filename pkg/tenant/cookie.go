package tenant

import (
	"net/http"
	"strconv"
)

// CookieName is the client-held active-organization hint.
// The value is a plaintext organization id and must be treated as
// adversarial input: a forged or stale cookie can at most cost one extra
// session read, never change the resolved organization.
const CookieName = "active_organization_id"

// ReadCookieHint extracts the organization-id hint from the request.
// Returns nil when the cookie is absent or unparseable.
func ReadCookieHint(r *http.Request) *int64 {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	orgID, err := strconv.ParseInt(cookie.Value, 10, 64)
	if err != nil || orgID <= 0 {
		return nil
	}
	return &orgID
}

// WriteCookie refreshes the hint cookie to the resolved organization.
// secure is off only for local development over plain HTTP.
func WriteCookie(w http.ResponseWriter, orgID int64, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    strconv.FormatInt(orgID, 10),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
