package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohorthq/cohort/pkg/observability"
)

func newCachedStore(t *testing.T) (*CachedStore, sqlmock.Sqlmock, *sql.DB, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCachedStore(NewStore(db), client, time.Minute, nil), mock, db, mr
}

func TestCachedGet(t *testing.T) {
	ctx := context.Background()

	t.Run("miss reads the store and populates the cache", func(t *testing.T) {
		cached, mock, db, mr := newCachedStore(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(10), int64(1)).
			WillReturnRows(companyRows(1, 10, "Acme", "acme.com"))

		company, err := cached.Get(ctx, 10, 1)
		require.NoError(t, err)
		assert.Equal(t, "Acme", company.Name)
		require.NoError(t, mock.ExpectationsWereMet())

		assert.True(t, mr.Exists("crm:company:10:1"))
	})

	t.Run("hit serves from the cache without touching the store", func(t *testing.T) {
		cached, mock, db, mr := newCachedStore(t)
		defer db.Close()

		data, err := json.Marshal(&Company{ID: 1, OrganizationID: 10, Name: "Acme"})
		require.NoError(t, err)
		require.NoError(t, mr.Set("crm:company:10:1", string(data)))

		company, err := cached.Get(ctx, 10, 1)
		require.NoError(t, err)
		assert.Equal(t, "Acme", company.Name)
		// No SQL expectations were set; a store read would fail here
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache keys are organization-scoped", func(t *testing.T) {
		cached, mock, db, mr := newCachedStore(t)
		defer db.Close()

		data, err := json.Marshal(&Company{ID: 1, OrganizationID: 10, Name: "Acme"})
		require.NoError(t, err)
		require.NoError(t, mr.Set("crm:company:10:1", string(data)))

		// Same company ID, different organization: the cached entry must
		// not answer, and the store says no such row
		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(20), int64(1)).
			WillReturnError(sql.ErrNoRows)

		_, err = cached.Get(ctx, 20, 1)
		assert.ErrorIs(t, err, ErrCompanyNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt cache entry falls through to the store", func(t *testing.T) {
		cached, mock, db, mr := newCachedStore(t)
		defer db.Close()

		require.NoError(t, mr.Set("crm:company:10:1", "not json"))

		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(10), int64(1)).
			WillReturnRows(companyRows(1, 10, "Acme", "acme.com"))

		company, err := cached.Get(ctx, 10, 1)
		require.NoError(t, err)
		assert.Equal(t, "Acme", company.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hits and misses are counted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })

		metrics := observability.NewMetrics(prometheus.NewRegistry())
		cached := NewCachedStore(NewStore(db), client, time.Minute, metrics)

		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(10), int64(1)).
			WillReturnRows(companyRows(1, 10, "Acme", "acme.com"))

		_, err = cached.Get(ctx, 10, 1)
		require.NoError(t, err)
		_, err = cached.Get(ctx, 10, 1)
		require.NoError(t, err)

		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("company")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("company")))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis down fails open to the store", func(t *testing.T) {
		cached, mock, db, mr := newCachedStore(t)
		defer db.Close()

		mr.Close()
		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(10), int64(1)).
			WillReturnRows(companyRows(1, 10, "Acme", "acme.com"))

		company, err := cached.Get(ctx, 10, 1)
		require.NoError(t, err)
		assert.Equal(t, "Acme", company.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCachedWritePaths(t *testing.T) {
	ctx := context.Background()

	t.Run("update refreshes the cached entry", func(t *testing.T) {
		cached, mock, db, mr := newCachedStore(t)
		defer db.Close()

		stale, err := json.Marshal(&Company{ID: 1, OrganizationID: 10, Name: "Old Name"})
		require.NoError(t, err)
		require.NoError(t, mr.Set("crm:company:10:1", string(stale)))

		now := time.Now()
		mock.ExpectQuery(`UPDATE companies`).
			WithArgs("New Name", "acme.com", int64(10), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		_, err = cached.Update(ctx, 10, 1, "New Name", "acme.com")
		require.NoError(t, err)

		entry, err := mr.Get("crm:company:10:1")
		require.NoError(t, err)
		assert.Contains(t, entry, "New Name")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete invalidates the cached entry", func(t *testing.T) {
		cached, mock, db, mr := newCachedStore(t)
		defer db.Close()

		data, err := json.Marshal(&Company{ID: 1, OrganizationID: 10, Name: "Acme"})
		require.NoError(t, err)
		require.NoError(t, mr.Set("crm:company:10:1", string(data)))

		mock.ExpectExec(`DELETE FROM companies`).
			WithArgs(int64(10), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, cached.Delete(ctx, 10, 1))
		assert.False(t, mr.Exists("crm:company:10:1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil redis client passes through", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		cached := NewCachedStore(NewStore(db), nil, 0, nil)

		mock.ExpectQuery(`SELECT id, organization_id, name, domain, created_at, updated_at`).
			WithArgs(int64(10), int64(1)).
			WillReturnRows(companyRows(1, 10, "Acme", "acme.com"))

		company, err := cached.Get(ctx, 10, 1)
		require.NoError(t, err)
		assert.Equal(t, "Acme", company.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
