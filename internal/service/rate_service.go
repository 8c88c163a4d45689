package service

import (
	"cbr-rates/internal/analytics"
	"cbr-rates/internal/cbr"
	"cbr-rates/internal/custom_err"
	"cbr-rates/internal/kafka"
	"cbr-rates/internal/metrics"
	"cbr-rates/internal/models"
	"cbr-rates/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000

	DefaultAnalyticsCurrency = "USD"
	DefaultAnalyticsDays     = 30
	MaxAnalyticsDays         = 3650

	publishTimeout = 5 * time.Second
)

type Rates interface {
	GetRates(ctx context.Context, date string) (*models.RatesResponse, error)
	GetHistory(ctx context.Context, limit int) (*models.HistoryResponse, error)
	Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error)
	GetAnalytics(ctx context.Context, currency string, days int) (*models.AnalyticsResponse, error)
	Health(ctx context.Context) error
}

type RateService struct {
	storage   storage.Storage
	txManager TxManager
	fetcher   cbr.Fetcher
	producer  kafka.Producer
	metrics   *metrics.RateMetrics
	log       *slog.Logger
}

func NewRateService(
	storage storage.Storage,
	txManager TxManager,
	fetcher cbr.Fetcher,
	producer kafka.Producer,
	metrics *metrics.RateMetrics,
	log *slog.Logger,
) *RateService {
	return &RateService{
		storage:   storage,
		txManager: txManager,
		fetcher:   fetcher,
		producer:  producer,
		metrics:   metrics,
		log:       log,
	}
}

// GetRates reads the store first and falls back to the central bank feed.
// A failed fetch yields a response with nil Rates, not an error.
func (s *RateService) GetRates(ctx context.Context, date string) (*models.RatesResponse, error) {
	const op = "service.GetRates"

	day, err := models.ParseRateDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", custom_err.ErrInvalidDate, date)
	}

	rates, err := s.storage.GetRatesByDate(ctx, date)
	if err == nil {
		return &models.RatesResponse{Date: date, Rates: rates}, nil
	}
	if !errors.Is(err, custom_err.ErrNotFound) {
		s.metrics.StoreErrorsTotal.WithLabelValues("read_by_date").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fetched := s.fetch(ctx, day)
	if fetched == nil {
		return &models.RatesResponse{Date: date, Rates: nil}, nil
	}

	if _, err := s.saveRates(ctx, date, fetched, models.SourceCBR); err != nil {
		s.log.Error("не удалось сохранить курсы ЦБ",
			slog.String("op", op),
			slog.String("date", date),
			slog.String("error", err.Error()))
	}

	return &models.RatesResponse{Date: date, Rates: fetched}, nil
}

func (s *RateService) fetch(ctx context.Context, day time.Time) map[string]float64 {
	const op = "service.fetch"

	start := time.Now()
	rates, err := s.fetcher.Fetch(ctx, day)
	s.metrics.CBRFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		result := metrics.FetchUnavailable
		switch {
		case errors.Is(err, custom_err.ErrSourceMalformed):
			result = metrics.FetchMalformed
		case errors.Is(err, custom_err.ErrNotFound):
			result = metrics.FetchEmpty
		}
		s.metrics.CBRFetchTotal.WithLabelValues(result).Inc()

		s.log.Warn("курсы ЦБ недоступны",
			slog.String("op", op),
			slog.String("date", day.Format(models.DateLayout)),
			slog.String("result", result),
			slog.String("error", err.Error()))
		return nil
	}

	s.metrics.CBRFetchTotal.WithLabelValues(metrics.FetchOK).Inc()
	return rates
}

func (s *RateService) saveRates(ctx context.Context, date string, rates map[string]float64, source string) (int, error) {
	const op = "service.saveRates"

	var saved int
	err := s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		n, err := s.storage.UpsertRatesTx(ctx, tx, date, rates)
		if err != nil {
			return err
		}
		saved = n
		return nil
	})
	if err != nil {
		s.metrics.StoreErrorsTotal.WithLabelValues("upsert").Inc()
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.RatesSavedTotal.WithLabelValues(source).Add(float64(saved))

	s.log.Info("курсы сохранены",
		slog.String("op", op),
		slog.String("date", date),
		slog.String("source", source),
		slog.Int("saved", saved))

	s.publish(ctx, models.RatesSavedEvent{
		EventID:    uuid.NewString(),
		Date:       date,
		Source:     source,
		Currencies: saved,
		Rates:      rates,
		SavedAt:    time.Now().UTC(),
	})

	return saved, nil
}

func (s *RateService) publish(ctx context.Context, event models.RatesSavedEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.producer.SendRatesSavedEvent(pubCtx, event); err != nil {
		s.log.Error("не удалось отправить событие в kafka",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()))
	}
}

func (s *RateService) GetHistory(ctx context.Context, limit int) (*models.HistoryResponse, error) {
	const op = "service.GetHistory"

	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 0 || limit > MaxHistoryLimit {
		return nil, fmt.Errorf("%w: must be between 1 and %d", custom_err.ErrInvalidLimit, MaxHistoryLimit)
	}

	records, err := s.storage.GetHistory(ctx, limit)
	if err != nil {
		s.metrics.StoreErrorsTotal.WithLabelValues("history").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.HistoryResponse{History: records}, nil
}

// Ingest validates the payload before touching the store.
func (s *RateService) Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	const op = "service.Ingest"

	if _, err := models.ParseRateDate(req.Date); err != nil {
		s.metrics.IngestRejectTotal.WithLabelValues("date").Inc()
		return nil, fmt.Errorf("%w: %q", custom_err.ErrInvalidDate, req.Date)
	}
	if err := req.Validate(); err != nil {
		s.metrics.IngestRejectTotal.WithLabelValues("rates").Inc()
		return nil, fmt.Errorf("%w: %s", custom_err.ErrInvalidInput, err.Error())
	}
	rates, err := req.RoundedRates()
	if err != nil {
		s.metrics.IngestRejectTotal.WithLabelValues("rates").Inc()
		return nil, fmt.Errorf("%w: %s", custom_err.ErrInvalidInput, err.Error())
	}

	saved, err := s.saveRates(ctx, req.Date, rates, models.SourceIngest)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.IngestResponse{Status: "ok", Saved: saved}, nil
}

func (s *RateService) GetAnalytics(ctx context.Context, currency string, days int) (*models.AnalyticsResponse, error) {
	const op = "service.GetAnalytics"

	currency = models.NormalizeCurrency(currency)
	if currency == "" {
		currency = DefaultAnalyticsCurrency
	}
	if !models.IsValidCurrencyCode(currency) {
		return nil, fmt.Errorf("%w: %q", custom_err.ErrInvalidCurrency, currency)
	}

	if days == 0 {
		days = DefaultAnalyticsDays
	}
	if days < 0 || days > MaxAnalyticsDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", custom_err.ErrInvalidLimit, MaxAnalyticsDays)
	}

	records, err := s.storage.GetCurrencyHistory(ctx, currency, days)
	if err != nil {
		s.metrics.StoreErrorsTotal.WithLabelValues("currency_history").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	values := make([]float64, 0, len(records))
	for _, rec := range records {
		values = append(values, rec.Rate)
	}

	summary, err := analytics.Summarize(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, currency, err)
	}

	return &models.AnalyticsResponse{
		Currency: currency,
		Days:     days,
		Count:    summary.Count,
		Mean:     summary.Mean,
		Std:      summary.Std,
		Min:      summary.Min,
		Max:      summary.Max,
		Trend:    summary.Trend,
		Latest:   summary.Latest,
		Oldest:   summary.Oldest,
	}, nil
}

func (s *RateService) Health(ctx context.Context) error {
	return s.storage.Ping(ctx)
}
