package crm

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewStore(db), mock, db
}

func companyRows(id, orgID int64, name string, domain any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "organization_id", "name", "domain", "created_at", "updated_at"}).
		AddRow(id, orgID, name, domain, now, now)
}

func TestStoreCreate(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO companies`).
		WithArgs(int64(10), "Acme", "acme.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))

	company, err := store.Create(context.Background(), 10, "Acme", "acme.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), company.ID)
	assert.Equal(t, int64(10), company.OrganizationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGet(t *testing.T) {
	ctx := context.Background()

	t.Run("returns company scoped to the organization", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(10), int64(1)).
			WillReturnRows(companyRows(1, 10, "Acme", "acme.com"))

		company, err := store.Get(ctx, 10, 1)
		require.NoError(t, err)
		assert.Equal(t, "Acme", company.Name)
		assert.Equal(t, "acme.com", company.Domain)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null domain scans to empty string", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(10), int64(1)).
			WillReturnRows(companyRows(1, 10, "Acme", nil))

		company, err := store.Get(ctx, 10, 1)
		require.NoError(t, err)
		assert.Equal(t, "", company.Domain)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("company in another organization is not found", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(20), int64(1)).
			WillReturnError(sql.ErrNoRows)

		_, err := store.Get(ctx, 20, 1)
		assert.ErrorIs(t, err, ErrCompanyNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStoreList(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "organization_id", "name", "domain", "created_at", "updated_at"}).
		AddRow(int64(2), int64(10), "Beta", nil, now, now).
		AddRow(int64(1), int64(10), "Acme", "acme.com", now, now)
	mock.ExpectQuery(`FROM companies`).
		WithArgs(int64(10)).
		WillReturnRows(rows)

	companies, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "Beta", companies[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("updates within the organization", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectQuery(`UPDATE companies`).
			WithArgs("Acme Corp", "acme.com", int64(10), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		company, err := store.Update(ctx, 10, 1, "Acme Corp", "acme.com")
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", company.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cross-org update is not found", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectQuery(`UPDATE companies`).
			WithArgs("Acme Corp", "acme.com", int64(20), int64(1)).
			WillReturnError(sql.ErrNoRows)

		_, err := store.Update(ctx, 20, 1, "Acme Corp", "acme.com")
		assert.ErrorIs(t, err, ErrCompanyNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes within the organization", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM companies`).
			WithArgs(int64(10), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.Delete(ctx, 10, 1))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cross-org delete is not found", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM companies`).
			WithArgs(int64(20), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Delete(ctx, 20, 1)
		assert.ErrorIs(t, err, ErrCompanyNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
