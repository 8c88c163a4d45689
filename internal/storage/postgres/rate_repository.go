package postgres

import (
	"cbr-rates/internal/custom_err"
	"cbr-rates/internal/models"
	"cbr-rates/internal/storage"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool is the subset of *pgxpool.Pool the repository needs.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

type PostgresStorage struct {
	db DBPool
}

var _ storage.Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(db DBPool) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) UpsertRatesTx(ctx context.Context, tx pgx.Tx, date string, rates map[string]float64) (int, error) {
	const op = "storage.UpsertRatesTx"

	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	saved := 0
	for _, code := range codes {
		if _, err := tx.Exec(ctx, storage.UpsertRateQuery, uuid.New(), date, code, rates[code]); err != nil {
			return saved, fmt.Errorf("%s: %s: %w: %w", op, code, custom_err.ErrStorageUnavailable, err)
		}
		saved++
	}
	return saved, nil
}

func (s *PostgresStorage) GetRatesByDate(ctx context.Context, date string) (map[string]float64, error) {
	const op = "storage.GetRatesByDate"

	rows, err := s.db.Query(ctx, storage.GetRatesByDateQuery, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, custom_err.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	rates := make(map[string]float64)
	for rows.Next() {
		var (
			code string
			rate float64
		)
		if err := rows.Scan(&code, &rate); err != nil {
			return nil, fmt.Errorf("%s: scan: %w: %w", op, custom_err.ErrStorageUnavailable, err)
		}
		rates[code] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, custom_err.ErrStorageUnavailable, err)
	}

	if len(rates) == 0 {
		return nil, custom_err.ErrNotFound
	}
	return rates, nil
}

func (s *PostgresStorage) GetHistory(ctx context.Context, limit int) ([]models.RateRecord, error) {
	const op = "storage.GetHistory"

	rows, err := s.db.Query(ctx, storage.GetHistoryQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, custom_err.ErrStorageUnavailable, err)
	}
	return scanRecords(op, rows)
}

func (s *PostgresStorage) GetCurrencyHistory(ctx context.Context, currency string, limit int) ([]models.RateRecord, error) {
	const op = "storage.GetCurrencyHistory"

	rows, err := s.db.Query(ctx, storage.GetCurrencyHistoryQuery, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, custom_err.ErrStorageUnavailable, err)
	}
	return scanRecords(op, rows)
}

func scanRecords(op string, rows pgx.Rows) ([]models.RateRecord, error) {
	defer rows.Close()

	records := make([]models.RateRecord, 0)
	for rows.Next() {
		var rec models.RateRecord
		err := rows.Scan(
			&rec.ID,
			&rec.Date,
			&rec.Currency,
			&rec.Rate,
			&rec.SavedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w: %w", op, custom_err.ErrStorageUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, custom_err.ErrStorageUnavailable, err)
	}
	return records, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("storage.Ping: %w: %w", custom_err.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *PostgresStorage) Close() {
	s.db.Close()
}
