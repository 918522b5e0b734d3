// Package api exposes the HTTP surface: organization lifecycle, the
// session switch, membership and invitation management, and the
// organization-scoped CRM routes.
//
// Routes come in two tiers. /api/v1/organizations and
// /api/v1/invitations/accept need only an authenticated principal;
// everything under /api/v1/org additionally runs tenant resolution, so
// its handlers read the active organization from the request context and
// never from client input. Role gates at the router are coarse;
// operations with race-sensitive rules re-check inside their own
// transaction.
package api
