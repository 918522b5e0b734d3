// Package tenant implements active-organization resolution for
// multi-organization users.
//
// # Model
//
// Every piece of business data belongs to exactly one organization. A user
// may belong to many organizations but every request is scoped to a single
// active one. Three layers cooperate to decide which:
//
//   - The user_sessions table (SessionStore) is the authoritative record of
//     each user's active organization, one row per user.
//   - The active_organization_id cookie is a client-held hint used to report
//     the fast path; it is adversarial input and is only ever trusted after
//     comparing it against the session row fetched in the same resolution.
//   - Inside Postgres, the get_active_organization_id() SQL function
//     re-derives the same answer for row-level-security policies, so a bug
//     in application code cannot widen a query past the tenant boundary.
//
// # Resolution
//
// Resolver.ResolveActiveOrganization reads the session row (verifying the
// user still holds a membership in the recorded organization), falls back
// to the user's earliest membership when no usable session exists, and
// persists that bootstrap choice with an idempotent upsert. The result must
// be resolved once per request and threaded through; re-resolving
// mid-request races with concurrent organization switches.
//
// A session row pointing at an organization the user has since been removed
// from is treated exactly like a missing row: the resolver re-bootstraps
// rather than resurrecting access to the lost organization.
package tenant
