package orgs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohorthq/cohort/pkg/auth"
)

func ownerRows(userIDs ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"user_id"})
	for _, id := range userIDs {
		rows.AddRow(id)
	}
	return rows
}

// expectLockRoles sets up the single FOR UPDATE read of the actor and
// target rows ChangeRole and RemoveMember issue inside their transaction.
// Rows come back in user_id order, matching the query.
func expectLockRoles(mock sqlmock.Sqlmock, orgID, actorID, targetID int64, actorRole, targetRole auth.Role) {
	rows := sqlmock.NewRows([]string{"user_id", "role"})
	if actorID < targetID {
		rows.AddRow(actorID, string(actorRole)).AddRow(targetID, string(targetRole))
	} else {
		rows.AddRow(targetID, string(targetRole)).AddRow(actorID, string(actorRole))
	}
	mock.ExpectQuery(`SELECT user_id, role FROM organization_members`).
		WithArgs(orgID, actorID, targetID).
		WillReturnRows(rows)
}

func TestChangeRole(t *testing.T) {
	ctx := context.Background()

	t.Run("admin promotes viewer to editor", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleAdmin, auth.RoleViewer)
		mock.ExpectExec(`UPDATE organization_members SET role`).
			WithArgs(auth.RoleEditor, int64(10), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleEditor)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, auth.RoleViewer, result.OldRole)
		assert.Equal(t, auth.RoleEditor, result.NewRole)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self role change is rejected before touching the database", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		result, err := service.ChangeRole(ctx, 1, 10, 1, auth.RoleViewer)
		assert.ErrorIs(t, err, ErrSelfModification)
		require.NotNil(t, result)
		assert.False(t, result.Success)
		assert.Equal(t, ErrSelfModification.Error(), result.Error)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid role is rejected", func(t *testing.T) {
		service, _, db := newMockService(t)
		defer db.Close()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.Role("superuser"))
		require.Error(t, err)
		assert.False(t, result.Success)
	})

	t.Run("non-member actor gets ErrInsufficientRole", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT user_id, role FROM organization_members`).
			WithArgs(int64(10), int64(1), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "role"}).AddRow(int64(2), "viewer"))
		mock.ExpectRollback()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleEditor)
		assert.ErrorIs(t, err, ErrInsufficientRole)
		assert.False(t, result.Success)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing target gets ErrNotAMember", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT user_id, role FROM organization_members`).
			WithArgs(int64(10), int64(1), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "role"}).AddRow(int64(1), "owner"))
		mock.ExpectRollback()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleEditor)
		assert.ErrorIs(t, err, ErrNotAMember)
		assert.False(t, result.Success)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin cannot promote to owner", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleAdmin, auth.RoleEditor)
		mock.ExpectRollback()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleOwner)
		assert.ErrorIs(t, err, ErrInsufficientRole)
		assert.False(t, result.Success)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin cannot demote an owner", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleAdmin, auth.RoleOwner)
		mock.ExpectQuery(`SELECT user_id FROM organization_members`).
			WithArgs(int64(10)).
			WillReturnRows(ownerRows(2, 3))
		mock.ExpectRollback()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleAdmin)
		assert.ErrorIs(t, err, ErrInsufficientRole)
		assert.False(t, result.Success)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("demoting a sole owner fails on the owner count regardless of actor rank", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		// This is also the committed state the loser of two concurrent
		// owner demotions re-reads after the winner's transaction: its
		// own row already demoted, the target the one owner left.
		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleAdmin, auth.RoleOwner)
		mock.ExpectQuery(`SELECT user_id FROM organization_members`).
			WithArgs(int64(10)).
			WillReturnRows(ownerRows(2))
		mock.ExpectRollback()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleAdmin)
		assert.ErrorIs(t, err, ErrLastOwnerViolation)
		assert.False(t, result.Success)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("editor cannot change roles at all", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleEditor, auth.RoleViewer)
		mock.ExpectRollback()

		_, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleEditor)
		assert.ErrorIs(t, err, ErrInsufficientRole)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("demoting the last owner is blocked", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleOwner, auth.RoleOwner)
		// The owner set re-read under lock contains only the target
		mock.ExpectQuery(`SELECT user_id FROM organization_members`).
			WithArgs(int64(10)).
			WillReturnRows(ownerRows(2))
		mock.ExpectRollback()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleAdmin)
		assert.ErrorIs(t, err, ErrLastOwnerViolation)
		assert.False(t, result.Success)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner demotion succeeds when another owner remains", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleOwner, auth.RoleOwner)
		mock.ExpectQuery(`SELECT user_id FROM organization_members`).
			WithArgs(int64(10)).
			WillReturnRows(ownerRows(1, 2))
		mock.ExpectExec(`UPDATE organization_members SET role`).
			WithArgs(auth.RoleAdmin, int64(10), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, auth.RoleOwner, result.OldRole)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner promotion to owner by an owner succeeds without owner-count check", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleOwner, auth.RoleAdmin)
		mock.ExpectExec(`UPDATE organization_members SET role`).
			WithArgs(auth.RoleOwner, int64(10), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.ChangeRole(ctx, 1, 10, 2, auth.RoleOwner)
		require.NoError(t, err)
		assert.True(t, result.Success)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("admin removes an editor", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleAdmin, auth.RoleEditor)
		mock.ExpectExec(`DELETE FROM organization_members`).
			WithArgs(int64(10), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, service.RemoveMember(ctx, 1, 10, 2))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self removal is rejected", func(t *testing.T) {
		service, _, db := newMockService(t)
		defer db.Close()

		err := service.RemoveMember(ctx, 1, 10, 1)
		assert.ErrorIs(t, err, ErrSelfModification)
	})

	t.Run("removing the last owner is blocked", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleOwner, auth.RoleOwner)
		mock.ExpectQuery(`SELECT user_id FROM organization_members`).
			WithArgs(int64(10)).
			WillReturnRows(ownerRows(2))
		mock.ExpectRollback()

		err := service.RemoveMember(ctx, 1, 10, 2)
		assert.ErrorIs(t, err, ErrLastOwnerViolation)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin cannot remove an owner", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLockRoles(mock, 10, 1, 2, auth.RoleAdmin, auth.RoleOwner)
		mock.ExpectQuery(`SELECT user_id FROM organization_members`).
			WithArgs(int64(10)).
			WillReturnRows(ownerRows(2, 3))
		mock.ExpectRollback()

		err := service.RemoveMember(ctx, 1, 10, 2)
		assert.ErrorIs(t, err, ErrInsufficientRole)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetMember(t *testing.T) {
	ctx := context.Background()

	t.Run("returns member with user details", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role", "invited_by", "created_at", "email", "full_name"}).
			AddRow(int64(5), int64(10), int64(2), "editor", nil, time.Now(), "bob@example.com", "Bob")
		mock.ExpectQuery(`FROM organization_members m`).
			WithArgs(int64(10), int64(2)).
			WillReturnRows(rows)

		member, err := service.GetMember(ctx, 10, 2)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleEditor, member.Role)
		assert.Equal(t, "bob@example.com", member.Email)
		assert.Nil(t, member.InvitedBy)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing membership maps to ErrNotAMember", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`FROM organization_members m`).
			WithArgs(int64(10), int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetMember(ctx, 10, 99)
		assert.ErrorIs(t, err, ErrNotAMember)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListMembers(t *testing.T) {
	ctx := context.Background()

	service, mock, db := newMockService(t)
	defer db.Close()

	inviter := int64(1)
	rows := sqlmock.NewRows([]string{"id", "organization_id", "user_id", "role", "invited_by", "created_at", "email", "full_name"}).
		AddRow(int64(1), int64(10), int64(1), "owner", nil, time.Now(), "alice@example.com", "Alice").
		AddRow(int64(2), int64(10), int64(2), "editor", inviter, time.Now(), "bob@example.com", nil)
	mock.ExpectQuery(`FROM organization_members m`).
		WithArgs(int64(10)).
		WillReturnRows(rows)

	members, err := service.ListMembers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, auth.RoleOwner, members[0].Role)
	assert.Equal(t, "", members[1].FullName)
	require.Equal(t, inviter, *members[1].InvitedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}
