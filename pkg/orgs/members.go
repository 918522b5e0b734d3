package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cohorthq/cohort/pkg/audit"
	"github.com/cohorthq/cohort/pkg/auth"
)

// ListMembers retrieves all members of an organization, oldest first
func (s *PostgresService) ListMembers(ctx context.Context, orgID int64) ([]*OrgMember, error) {
	query := `
		SELECT m.id, m.organization_id, m.user_id, m.role, m.invited_by, m.created_at,
		       u.email, u.full_name
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*OrgMember
	for rows.Next() {
		member := &OrgMember{}
		var fullName sql.NullString
		if err := rows.Scan(
			&member.ID, &member.OrganizationID, &member.UserID, &member.Role,
			&member.InvitedBy, &member.CreatedAt, &member.Email, &fullName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.FullName = fullName.String
		members = append(members, member)
	}

	return members, nil
}

// GetMember retrieves a specific member
func (s *PostgresService) GetMember(ctx context.Context, orgID, userID int64) (*OrgMember, error) {
	query := `
		SELECT m.id, m.organization_id, m.user_id, m.role, m.invited_by, m.created_at,
		       u.email, u.full_name
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1 AND m.user_id = $2
	`
	member := &OrgMember{}
	var fullName sql.NullString
	err := s.db.QueryRowContext(ctx, query, orgID, userID).Scan(
		&member.ID, &member.OrganizationID, &member.UserID, &member.Role,
		&member.InvitedBy, &member.CreatedAt, &member.Email, &fullName,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotAMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	member.FullName = fullName.String

	return member, nil
}

// ChangeRole changes a member's role, enforcing the membership business
// rules under row-level locking:
//
//   - an actor cannot change their own role,
//   - promoting to or demoting from owner requires an owner actor,
//   - other changes require at least an admin actor,
//   - the last owner can never be demoted.
//
// The owner-count check and the role update run in one transaction with the
// organization's owner rows locked FOR UPDATE, so two concurrent demotions
// of the two remaining owners serialize: the second re-reads the committed
// state and fails with ErrLastOwnerViolation.
//
// The returned RoleChangeResult reports business-rule failures in-band; the
// error return carries them too (plus any storage failure) for errors.Is.
func (s *PostgresService) ChangeRole(ctx context.Context, actorID, orgID, targetID int64, newRole auth.Role) (*RoleChangeResult, error) {
	if !newRole.Valid() {
		return failedResult(fmt.Errorf("invalid role %q", newRole))
	}
	if actorID == targetID {
		return failedResult(ErrSelfModification)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	actorRole, targetRole, err := s.lockRoles(ctx, tx, orgID, actorID, targetID)
	if err != nil {
		return failedResult(err)
	}

	// The owner-count guard runs before the privilege checks: a sole
	// remaining owner is protected no matter who asks, and the loser of
	// two raced demotions sees the guard fail, not its own lost rank
	if targetRole == auth.RoleOwner && newRole != auth.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, tx, orgID, targetID); err != nil {
			return failedResult(err)
		}
	}

	// Touching the owner tier in either direction is owner-only
	if newRole == auth.RoleOwner || targetRole == auth.RoleOwner {
		if actorRole != auth.RoleOwner {
			return failedResult(ErrInsufficientRole)
		}
	} else if !actorRole.AtLeast(auth.RoleAdmin) {
		return failedResult(ErrInsufficientRole)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE organization_members SET role = $1
		WHERE organization_id = $2 AND user_id = $3
	`, newRole, orgID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	audit.LogBestEffort(ctx, s.auditor,
		audit.NewEvent(audit.EventTypeMemberRoleChange, audit.EventStatusSuccess).
			WithActor(actorID).
			WithOrganization(orgID).
			WithTarget(targetID).
			WithMetadata(map[string]any{"old_role": string(targetRole), "new_role": string(newRole)}))

	return &RoleChangeResult{
		Success: true,
		OldRole: targetRole,
		NewRole: newRole,
	}, nil
}

// RemoveMember removes a member from an organization under the same
// locking discipline as ChangeRole. Removing an owner is owner-only and
// the last owner can never be removed.
func (s *PostgresService) RemoveMember(ctx context.Context, actorID, orgID, targetID int64) error {
	if actorID == targetID {
		return ErrSelfModification
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	actorRole, targetRole, err := s.lockRoles(ctx, tx, orgID, actorID, targetID)
	if err != nil {
		return err
	}

	if targetRole == auth.RoleOwner {
		if err := s.ensureAnotherOwner(ctx, tx, orgID, targetID); err != nil {
			return err
		}
		if actorRole != auth.RoleOwner {
			return ErrInsufficientRole
		}
	} else if !actorRole.AtLeast(auth.RoleAdmin) {
		return ErrInsufficientRole
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`, orgID, targetID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	audit.LogBestEffort(ctx, s.auditor,
		audit.NewEvent(audit.EventTypeMemberRemove, audit.EventStatusSuccess).
			WithActor(actorID).
			WithOrganization(orgID).
			WithTarget(targetID).
			WithMetadata(map[string]any{"removed_role": string(targetRole)}))

	return nil
}

// lockRoles reads the actor's and target's roles inside the transaction,
// locking both membership rows with one statement. The user_id ordering
// means two transactions over the same pair take the locks in the same
// sequence whichever side is the actor, so opposite-direction demotions
// block instead of deadlocking. ErrInsufficientRole when the actor is not
// a member at all; ErrNotAMember when the target is missing.
func (s *PostgresService) lockRoles(ctx context.Context, tx *sql.Tx, orgID, actorID, targetID int64) (actorRole, targetRole auth.Role, err error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT user_id, role FROM organization_members
		WHERE organization_id = $1 AND user_id IN ($2, $3)
		ORDER BY user_id
		FOR UPDATE
	`, orgID, actorID, targetID)
	if err != nil {
		return "", "", fmt.Errorf("failed to lock membership rows: %w", err)
	}
	defer rows.Close()

	var haveActor, haveTarget bool
	for rows.Next() {
		var userID int64
		var role auth.Role
		if err := rows.Scan(&userID, &role); err != nil {
			return "", "", fmt.Errorf("failed to scan membership row: %w", err)
		}
		switch userID {
		case actorID:
			actorRole, haveActor = role, true
		case targetID:
			targetRole, haveTarget = role, true
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", fmt.Errorf("failed to read membership rows: %w", err)
	}

	if !haveActor {
		return "", "", ErrInsufficientRole
	}
	if !haveTarget {
		return "", "", ErrNotAMember
	}
	return actorRole, targetRole, nil
}

// ensureAnotherOwner locks every owner row of the organization and fails
// with ErrLastOwnerViolation unless an owner other than excludeUserID
// remains. Locking the full owner set is what serializes concurrent
// demotions; a plain count-then-write is a TOCTOU race.
func (s *PostgresService) ensureAnotherOwner(ctx context.Context, tx *sql.Tx, orgID, excludeUserID int64) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT user_id FROM organization_members
		WHERE organization_id = $1 AND role = 'owner'
		FOR UPDATE
	`, orgID)
	if err != nil {
		return fmt.Errorf("failed to lock owner rows: %w", err)
	}
	defer rows.Close()

	otherOwners := 0
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("failed to scan owner row: %w", err)
		}
		if userID != excludeUserID {
			otherOwners++
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate owner rows: %w", err)
	}

	if otherOwners == 0 {
		return ErrLastOwnerViolation
	}
	return nil
}

// failedResult maps a failure into the structured result callers across a
// process boundary consume, while keeping the sentinel on the error return
// for errors.Is.
func failedResult(err error) (*RoleChangeResult, error) {
	return &RoleChangeResult{Success: false, Error: err.Error()}, err
}
