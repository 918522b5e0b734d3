package tenant

import (
	"context"
	"errors"
)

// Resolver decides which single organization a verified principal's request
// is scoped to. It is safe for concurrent use.
type Resolver struct {
	store *SessionStore
}

// NewResolver creates a resolver backed by a session store
func NewResolver(store *SessionStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveActiveOrganization returns the principal's active organization id.
//
// The cookie hint, when present and equal to the session row fetched in the
// same call, makes this a single-read fast path. A missing, stale, or
// forged hint falls through to the session row, which always wins. With no
// usable session row the resolver bootstraps: it picks the principal's
// earliest membership, persists it with an idempotent upsert, and returns
// it. ErrNoMembership when the principal belongs to zero organizations.
//
// The returned Source reports which layer answered, for metrics only.
func (r *Resolver) ResolveActiveOrganization(ctx context.Context, principalID int64, cookieHint *int64) (int64, Source, error) {
	session, err := r.store.GetVerified(ctx, principalID)
	if err == nil {
		if cookieHint != nil && *cookieHint == session.OrganizationID {
			return session.OrganizationID, SourceCookie, nil
		}
		return session.OrganizationID, SourceStore, nil
	}
	if !errors.Is(err, errNoSession) {
		return 0, "", err
	}

	// Cold start (or session pointing at a lost membership): default to the
	// earliest membership so repeated bootstraps agree.
	orgID, err := r.store.FirstOrganization(ctx, principalID)
	if err != nil {
		return 0, "", err
	}
	if err := r.store.Upsert(ctx, principalID, orgID); err != nil {
		return 0, "", err
	}
	return orgID, SourceBootstrap, nil
}

// SwitchActiveOrganization points the principal's session at orgID.
// ErrNotAMember when the principal holds no membership there. Once this
// returns nil, the next resolution for the principal returns orgID; the
// cookie refresh is the transport layer's concern.
func (r *Resolver) SwitchActiveOrganization(ctx context.Context, principalID, orgID int64) error {
	ok, err := r.store.HasMembership(ctx, principalID, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAMember
	}
	return r.store.Upsert(ctx, principalID, orgID)
}
