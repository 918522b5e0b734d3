package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohorthq/cohort/pkg/auth"
)

func newMockService(t *testing.T) (*PostgresService, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresService(db, nil), mock, db
}

func orgRows(id int64, name, slug string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}).
		AddRow(id, name, slug, now, now)
}

func TestCreateOrganization(t *testing.T) {
	ctx := context.Background()

	t.Run("creates org with owner membership and session bootstrap", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO organizations`).
			WithArgs("Acme Corp", "acme-corp").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(10), now, now))
		mock.ExpectExec(`INSERT INTO organization_members`).
			WithArgs(int64(10), int64(1), auth.RoleOwner).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO user_sessions`).
			WithArgs(int64(1), int64(10)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		org, err := service.CreateOrganization(ctx, &CreateOrgRequest{Name: "Acme Corp"}, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(10), org.ID)
		assert.Equal(t, "acme-corp", org.Slug)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate slug is reported as taken", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO organizations`).
			WithArgs("Acme Corp", "acme").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, err := service.CreateOrganization(ctx, &CreateOrgRequest{Name: "Acme Corp", Slug: "acme"}, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already taken")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("name with no usable characters is rejected", func(t *testing.T) {
		service, _, db := newMockService(t)
		defer db.Close()

		_, err := service.CreateOrganization(ctx, &CreateOrgRequest{Name: "!!!"}, 1)
		require.Error(t, err)
	})
}

func TestGetOrganization(t *testing.T) {
	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM organizations`).
			WithArgs(int64(10)).
			WillReturnRows(orgRows(10, "Acme Corp", "acme-corp"))

		org, err := service.GetOrganization(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "acme-corp", org.Slug)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by slug", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM organizations`).
			WithArgs("acme-corp").
			WillReturnRows(orgRows(10, "Acme Corp", "acme-corp"))

		org, err := service.GetOrganizationBySlug(ctx, "acme-corp")
		require.NoError(t, err)
		assert.Equal(t, int64(10), org.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing org maps to ErrOrgNotFound", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM organizations`).
			WithArgs(int64(999)).
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetOrganization(ctx, 999)
		assert.ErrorIs(t, err, ErrOrgNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListOrganizations(t *testing.T) {
	ctx := context.Background()

	t.Run("returns memberships oldest first", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}).
			AddRow(int64(10), "First", "first", now, now).
			AddRow(int64(20), "Second", "second", now, now)
		mock.ExpectQuery(`JOIN organization_members m`).
			WithArgs(int64(1)).
			WillReturnRows(rows)

		orgs, err := service.ListOrganizations(ctx, 1)
		require.NoError(t, err)
		require.Len(t, orgs, 2)
		assert.Equal(t, int64(10), orgs[0].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no memberships yields empty list", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(`JOIN organization_members m`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}))

		orgs, err := service.ListOrganizations(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, orgs)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteOrganization(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes existing org", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM organizations`).
			WithArgs(int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, service.DeleteOrganization(ctx, 10))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing org maps to ErrOrgNotFound", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM organizations`).
			WithArgs(int64(999)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.DeleteOrganization(ctx, 999)
		assert.ErrorIs(t, err, ErrOrgNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "Acme Corp", "acme-corp"},
		{"punctuation stripped", "Acme, Inc.", "acme-inc"},
		{"leading and trailing spaces", "  Acme  ", "acme"},
		{"already a slug", "acme-corp", "acme-corp"},
		{"unusable name", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, generateSlug(tt.input))
		})
	}
}

func TestGenerateInvitationToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := generateInvitationToken()
		require.NoError(t, err)
		assert.Len(t, token, 43, "32 random bytes base64url-encode to 43 chars")
		assert.False(t, seen[token], fmt.Sprintf("token %q repeated", token))
		seen[token] = true
	}
}
