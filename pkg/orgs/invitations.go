package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cohorthq/cohort/pkg/audit"
	"github.com/cohorthq/cohort/pkg/auth"
)

// invitationLifetime is fixed at 7 days from creation, not renewable
const invitationLifetime = 7 * 24 * time.Hour

// CreateInvitation issues a time-boxed, single-use invitation binding an
// email to (organization, role). Requires an admin or owner actor;
// inviting at the owner tier requires an owner actor, mirroring ChangeRole.
// Email dispatch is the caller's concern; a failed send must not undo the
// invitation, the link can be shared manually.
func (s *PostgresService) CreateInvitation(ctx context.Context, actorID, orgID int64, email string, role auth.Role) (*OrgInvitation, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	actor, err := s.GetMember(ctx, orgID, actorID)
	if err != nil {
		return nil, ErrInsufficientRole
	}
	if !actor.Role.AtLeast(auth.RoleAdmin) {
		return nil, ErrInsufficientRole
	}
	if role == auth.RoleOwner && actor.Role != auth.RoleOwner {
		return nil, ErrInsufficientRole
	}

	// Reject invitations for existing members
	var one int
	err = s.db.QueryRowContext(ctx, `
		SELECT 1
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1 AND LOWER(u.email) = $2
	`, orgID, email).Scan(&one)
	if err == nil {
		return nil, ErrAlreadyMember
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}

	token, err := generateInvitationToken()
	if err != nil {
		return nil, err
	}

	invitation := &OrgInvitation{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		Token:          token,
		InvitedBy:      actorID,
		ExpiresAt:      time.Now().Add(invitationLifetime),
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO org_invitations (organization_id, email, role, token, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, invited_at
	`, orgID, email, role, token, actorID, invitation.ExpiresAt).
		Scan(&invitation.ID, &invitation.InvitedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	audit.LogBestEffort(ctx, s.auditor,
		audit.NewEvent(audit.EventTypeInvitationCreate, audit.EventStatusSuccess).
			WithActor(actorID).
			WithOrganization(orgID).
			WithMetadata(map[string]any{"email": email, "role": string(role)}))

	return invitation, nil
}

// GetInvitation retrieves an invitation by token. Lookup is deliberately
// unscoped: the accepting principal is not yet a member of the
// organization, so organization-scoped authorization cannot apply here.
func (s *PostgresService) GetInvitation(ctx context.Context, token string) (*OrgInvitation, error) {
	query := `
		SELECT id, organization_id, email, role, token, invited_by, invited_at,
		       expires_at, accepted_at, accepted_by, revoked_at, revoked_by
		FROM org_invitations
		WHERE token = $1
	`
	invitation := &OrgInvitation{}
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&invitation.ID, &invitation.OrganizationID, &invitation.Email, &invitation.Role,
		&invitation.Token, &invitation.InvitedBy, &invitation.InvitedAt,
		&invitation.ExpiresAt, &invitation.AcceptedAt, &invitation.AcceptedBy,
		&invitation.RevokedAt, &invitation.RevokedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return invitation, nil
}

// ListInvitations lists pending invitations for an organization. The token
// is not selected; it is only handed out once, at creation.
func (s *PostgresService) ListInvitations(ctx context.Context, orgID int64) ([]*OrgInvitation, error) {
	query := `
		SELECT id, organization_id, email, role, invited_by, invited_at, expires_at
		FROM org_invitations
		WHERE organization_id = $1 AND accepted_at IS NULL AND revoked_at IS NULL
		ORDER BY invited_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*OrgInvitation
	for rows.Next() {
		invitation := &OrgInvitation{}
		if err := rows.Scan(
			&invitation.ID, &invitation.OrganizationID, &invitation.Email, &invitation.Role,
			&invitation.InvitedBy, &invitation.InvitedAt, &invitation.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, invitation)
	}

	return invitations, nil
}

// AcceptInvitation validates and consumes an invitation, then atomically
// creates the membership, marks the token used, and points the accepting
// principal's session at the organization so it is immediately active.
//
// Validation order: token exists, not expired, not revoked, not already
// used, invited email matches the principal's verified email. Each failure
// is a distinct sentinel so the UI can tell "ask for a new invite" from
// "you are signed in as the wrong account". Expiry is checked before
// revocation so a token the janitor already swept still reports expiry.
func (s *PostgresService) AcceptInvitation(ctx context.Context, principal *auth.Principal, token string) (*OrgInvitation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the invitation row so a concurrent accept of the same token
	// serializes and the loser sees accepted_at set
	query := `
		SELECT id, organization_id, email, role, invited_at, expires_at, accepted_at, revoked_at
		FROM org_invitations
		WHERE token = $1
		FOR UPDATE
	`
	invitation := &OrgInvitation{Token: token}
	err = tx.QueryRowContext(ctx, query, token).Scan(
		&invitation.ID, &invitation.OrganizationID, &invitation.Email, &invitation.Role,
		&invitation.InvitedAt, &invitation.ExpiresAt, &invitation.AcceptedAt, &invitation.RevokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	if time.Now().After(invitation.ExpiresAt) {
		return nil, ErrInvitationExpired
	}
	// A revoked invitation is indistinguishable from one that never existed
	if invitation.RevokedAt != nil {
		return nil, ErrInvalidToken
	}
	if invitation.AcceptedAt != nil {
		return nil, ErrInvitationAlreadyUsed
	}
	if !strings.EqualFold(invitation.Email, principal.Email) {
		return nil, ErrEmailMismatch
	}

	// A membership created out-of-band since the invite was issued wins
	result, err := tx.ExecContext(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, (SELECT invited_by FROM org_invitations WHERE id = $4))
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`, invitation.OrganizationID, principal.ID, invitation.Role, invitation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrAlreadyMember
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE org_invitations SET accepted_at = NOW(), accepted_by = $1 WHERE id = $2
	`, principal.ID, invitation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invitation accepted: %w", err)
	}

	// The newly joined organization becomes the active one immediately
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_sessions (user_id, organization_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET organization_id = EXCLUDED.organization_id, switched_at = NOW()
	`, principal.ID, invitation.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	audit.LogBestEffort(ctx, s.auditor,
		audit.NewEvent(audit.EventTypeInvitationAccept, audit.EventStatusSuccess).
			WithActor(principal.ID).
			WithOrganization(invitation.OrganizationID).
			WithMetadata(map[string]any{"email": invitation.Email, "role": string(invitation.Role)}))

	return invitation, nil
}

// RevokeInvitation marks a pending invitation revoked. The row stays:
// revoked and accepted invitations together form the audit trail.
func (s *PostgresService) RevokeInvitation(ctx context.Context, actorID, invitationID int64) error {
	var orgID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT organization_id FROM org_invitations WHERE id = $1`, invitationID).Scan(&orgID)
	if err == sql.ErrNoRows {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to get invitation: %w", err)
	}

	actor, err := s.GetMember(ctx, orgID, actorID)
	if err != nil || !actor.Role.AtLeast(auth.RoleAdmin) {
		return ErrInsufficientRole
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE org_invitations SET revoked_at = NOW(), revoked_by = $1
		WHERE id = $2 AND accepted_at IS NULL AND revoked_at IS NULL
	`, actorID, invitationID)
	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInvitationAlreadyUsed
	}

	audit.LogBestEffort(ctx, s.auditor,
		audit.NewEvent(audit.EventTypeInvitationRevoke, audit.EventStatusSuccess).
			WithActor(actorID).
			WithOrganization(orgID).
			WithMetadata(map[string]any{"invitation_id": invitationID}))

	return nil
}

// CleanupExpiredInvitations marks expired, never-accepted invitations
// revoked so they drop out of pending listings. No rows are deleted;
// expired, revoked, and accepted invitations all stay as the audit trail.
func (s *PostgresService) CleanupExpiredInvitations(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE org_invitations SET revoked_at = NOW()
		WHERE expires_at < NOW() AND accepted_at IS NULL AND revoked_at IS NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired invitations: %w", err)
	}
	return result.RowsAffected()
}
