package tenant

import (
	"errors"
	"time"
)

// Session is one user's active-organization record
type Session struct {
	UserID         int64     `json:"user_id"`
	OrganizationID int64     `json:"organization_id"`
	SwitchedAt     time.Time `json:"switched_at"`
}

// Source reports which layer answered a resolution, for metrics
type Source string

const (
	// SourceCookie: the cookie hint matched the session row
	SourceCookie Source = "cookie"
	// SourceStore: the session row answered (cookie absent or stale)
	SourceStore Source = "store"
	// SourceBootstrap: no usable session row; defaulted to the earliest
	// membership and persisted
	SourceBootstrap Source = "bootstrap"
)

var (
	// ErrNoMembership is returned when a user belongs to zero organizations.
	// Callers must surface this before attempting any data query.
	ErrNoMembership = errors.New("user has no organization memberships")

	// ErrNotAMember is returned by a switch targeting an organization the
	// user does not belong to
	ErrNotAMember = errors.New("user is not a member of the organization")

	// errNoSession is the store's internal "no usable session row" signal
	errNoSession = errors.New("no session row")
)
