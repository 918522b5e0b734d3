package tenant

import (
	"context"
	"database/sql"
	"fmt"
)

// SessionStore persists active-organization records in Postgres.
//
// The session row is the one piece of shared mutable state in tenant
// resolution. It is never cached in-process: every resolution reads the
// table so that horizontally scaled instances agree.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a session store on an existing connection pool
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// GetVerified fetches the user's session row, but only when the user still
// holds a membership in the recorded organization. A session pointing at a
// lost organization is reported as errNoSession so the caller re-bootstraps
// instead of resurrecting access.
func (s *SessionStore) GetVerified(ctx context.Context, userID int64) (*Session, error) {
	query := `
		SELECT s.user_id, s.organization_id, s.switched_at
		FROM user_sessions s
		JOIN organization_members m
		  ON m.organization_id = s.organization_id AND m.user_id = s.user_id
		WHERE s.user_id = $1
	`
	session := &Session{}
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&session.UserID, &session.OrganizationID, &session.SwitchedAt)
	if err == sql.ErrNoRows {
		return nil, errNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Upsert sets the user's active organization, keyed by user id.
// Last writer wins: switching is an explicit user action, so single-row
// atomicity is all the conflict resolution required.
func (s *SessionStore) Upsert(ctx context.Context, userID, orgID int64) error {
	query := `
		INSERT INTO user_sessions (user_id, organization_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET organization_id = EXCLUDED.organization_id, switched_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, userID, orgID); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// FirstOrganization returns the user's earliest membership's organization,
// the deterministic bootstrap default. Returns ErrNoMembership when the
// user belongs to nothing.
func (s *SessionStore) FirstOrganization(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT organization_id
		FROM organization_members
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	var orgID int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&orgID)
	if err == sql.ErrNoRows {
		return 0, ErrNoMembership
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query memberships: %w", err)
	}
	return orgID, nil
}

// HasMembership reports whether the user belongs to the organization
func (s *SessionStore) HasMembership(ctx context.Context, userID, orgID int64) (bool, error) {
	query := `SELECT 1 FROM organization_members WHERE user_id = $1 AND organization_id = $2`
	var one int
	err := s.db.QueryRowContext(ctx, query, userID, orgID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}
