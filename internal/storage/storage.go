package storage

import (
	"cbr-rates/internal/models"
	"context"

	"github.com/jackc/pgx/v5"
)

type Storage interface {
	UpsertRatesTx(ctx context.Context, tx pgx.Tx, date string, rates map[string]float64) (int, error)
	GetRatesByDate(ctx context.Context, date string) (map[string]float64, error)
	GetHistory(ctx context.Context, limit int) ([]models.RateRecord, error)
	GetCurrencyHistory(ctx context.Context, currency string, limit int) ([]models.RateRecord, error)
	Ping(ctx context.Context) error
	Close()
}
