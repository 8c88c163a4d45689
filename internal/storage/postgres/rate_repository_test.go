package postgres

import (
	"cbr-rates/internal/custom_err"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStorage_UpsertRatesTx_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO currency_rates")).
		WithArgs(pgxmock.AnyArg(), "2024-03-01", "EUR", 99.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO currency_rates")).
		WithArgs(pgxmock.AnyArg(), "2024-03-01", "USD", 90.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	saved, err := store.UpsertRatesTx(ctx, tx, "2024-03-01", map[string]float64{"USD": 90.5, "EUR": 99.5})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, 2, saved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_UpsertRatesTx_ReplacesOnConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)
	ctx := context.Background()

	upsert := regexp.QuoteMeta("ON CONFLICT (rate_date, currency_code)") + `\s+` +
		regexp.QuoteMeta("DO UPDATE SET rate = EXCLUDED.rate")

	mock.ExpectBegin()
	mock.ExpectExec(upsert).
		WithArgs(pgxmock.AnyArg(), "2024-03-01", "USD", 90.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(upsert).
		WithArgs(pgxmock.AnyArg(), "2024-03-01", "USD", 91.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	_, err = store.UpsertRatesTx(ctx, tx, "2024-03-01", map[string]float64{"USD": 90.5})
	require.NoError(t, err)
	_, err = store.UpsertRatesTx(ctx, tx, "2024-03-01", map[string]float64{"USD": 91.0})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_UpsertRatesTx_ExecError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO currency_rates")).
		WithArgs(pgxmock.AnyArg(), "2024-03-01", "USD", 90.5).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	saved, err := store.UpsertRatesTx(ctx, tx, "2024-03-01", map[string]float64{"USD": 90.5})
	require.Error(t, err)
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, 0, saved)
	assert.ErrorIs(t, err, custom_err.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetRatesByDate_Found(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT currency_code, rate")).
		WithArgs("2024-03-01").
		WillReturnRows(pgxmock.NewRows([]string{"currency_code", "rate"}).
			AddRow("USD", 90.5))

	rates, err := store.GetRatesByDate(context.Background(), "2024-03-01")

	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"USD": 90.5}, rates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetRatesByDate_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT currency_code, rate")).
		WithArgs("1999-01-01").
		WillReturnRows(pgxmock.NewRows([]string{"currency_code", "rate"}))

	rates, err := store.GetRatesByDate(context.Background(), "1999-01-01")

	assert.Nil(t, rates)
	assert.ErrorIs(t, err, custom_err.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetRatesByDate_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT currency_code, rate")).
		WithArgs("2024-03-01").
		WillReturnError(errors.New("database is down"))

	rates, err := store.GetRatesByDate(context.Background(), "2024-03-01")

	assert.Nil(t, rates)
	assert.ErrorIs(t, err, custom_err.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, custom_err.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetRatesByDate_ScanError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)

	rows := pgxmock.NewRows([]string{"currency_code", "rate", "extra"}).
		AddRow("USD", 90.5, "unexpected")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT currency_code, rate")).
		WithArgs("2024-03-01").
		WillReturnRows(rows)

	rates, err := store.GetRatesByDate(context.Background(), "2024-03-01")

	assert.Nil(t, rates)
	assert.ErrorIs(t, err, custom_err.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetHistory_ScanError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)

	rows := pgxmock.NewRows([]string{"id", "rate_date"}).
		AddRow(uuid.New(), "2024-03-01")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs(10).
		WillReturnRows(rows)

	records, err := store.GetHistory(context.Background(), 10)

	assert.Nil(t, records)
	assert.ErrorIs(t, err, custom_err.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)

	newer := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY saved_at DESC")).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "rate_date", "currency_code", "rate", "saved_at"}).
			AddRow(uuid.New(), "2024-03-02", "USD", 91.0, newer).
			AddRow(uuid.New(), "2024-03-01", "USD", 90.5, older))

	records, err := store.GetHistory(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-03-02", records[0].Date)
	assert.True(t, records[0].SavedAt.After(records[1].SavedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetHistory_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM currency_rates")).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "rate_date", "currency_code", "rate", "saved_at"}))

	records, err := store.GetHistory(context.Background(), 50)

	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestPostgresStorage_GetCurrencyHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE currency_code = $1")).
		WithArgs("EUR", 30).
		WillReturnRows(pgxmock.NewRows([]string{"id", "rate_date", "currency_code", "rate", "saved_at"}).
			AddRow(uuid.New(), "2024-03-02", "EUR", 99.1, now).
			AddRow(uuid.New(), "2024-03-01", "EUR", 98.7, now))

	records, err := store.GetCurrencyHistory(context.Background(), "EUR", 30)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 99.1, records[0].Rate)
	assert.Equal(t, "EUR", records[1].Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Ping_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStorage(mock)

	mock.ExpectPing().WillReturnError(errors.New("no route to host"))

	err = store.Ping(context.Background())

	assert.ErrorIs(t, err, custom_err.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
