package assignment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complyledger/internal/jurisdiction/models"
	"complyledger/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func primaryAssignment(code string) *models.TokenJurisdictionAssignment {
	return &models.TokenJurisdictionAssignment{
		AssetID:          "tok-1",
		Network:          "ethereum",
		JurisdictionCode: code,
		IsPrimary:        true,
		AssignedBy:       "admin",
		AssignedAt:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPostgresAssignDemotesInSameTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	a := primaryAssignment(models.GlobalJurisdiction)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("tok-1", "ethereum").
		WillReturnRows(sqlmock.NewRows([]string{"jurisdiction_code"}).AddRow("EU"))
	mock.ExpectExec(regexp.QuoteMeta("SET is_primary = false")).
		WithArgs("tok-1", "ethereum", models.GlobalJurisdiction).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (asset_id, network, jurisdiction_code) DO UPDATE")).
		WithArgs("tok-1", "ethereum", models.GlobalJurisdiction, true, "admin", "", a.AssignedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := store.Assign(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, got.IsPrimary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignSecondaryDoesNotDemote(t *testing.T) {
	store, mock := newMockStore(t)
	a := primaryAssignment("US")
	a.IsPrimary = false

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"jurisdiction_code"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_jurisdiction_assignments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := store.Assign(context.Background(), a)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignPrimaryRaceIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"jurisdiction_code"}))
	mock.ExpectExec(regexp.QuoteMeta("SET is_primary = false")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_jurisdiction_assignments")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := store.Assign(context.Background(), primaryAssignment("EU"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemove(t *testing.T) {
	key := models.NewAssetKey("tok-1", "Ethereum")

	t.Run("deleted", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM token_jurisdiction_assignments")).
			WithArgs("tok-1", "ethereum", "EU").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, store.Remove(context.Background(), key, "EU"))
	})

	t.Run("missing", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM token_jurisdiction_assignments")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, store.Remove(context.Background(), key, "EU"), sentinel.ErrNotFound)
	})
}

func TestPostgresListByAsset(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY is_primary DESC, seq ASC")).
		WithArgs("tok-1", "ethereum").
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "network", "jurisdiction_code", "is_primary", "assigned_by", "reason", "assigned_at"}).
			AddRow("tok-1", "ethereum", "GLOBAL", true, "admin", "", now).
			AddRow("tok-1", "ethereum", "EU", false, "admin", "listed in EU", now))

	list, err := store.ListByAsset(context.Background(), models.NewAssetKey("tok-1", "ethereum"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].IsPrimary)
	assert.Equal(t, "listed in EU", list[1].Reason)
}
