package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"cbr-rates/internal/custom_err"
	"cbr-rates/internal/models"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) UpsertRatesTx(ctx context.Context, tx pgx.Tx, date string, rates map[string]float64) (int, error) {
	args := m.Called(ctx, tx, date, rates)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) GetRatesByDate(ctx context.Context, date string) (map[string]float64, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *MockStorage) GetHistory(ctx context.Context, limit int) ([]models.RateRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RateRecord), args.Error(1)
}

func (m *MockStorage) GetCurrencyHistory(ctx context.Context, currency string, limit int) ([]models.RateRecord, error) {
	args := m.Called(ctx, currency, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RateRecord), args.Error(1)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Close() {
	m.Called()
}

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, date time.Time) (map[string]float64, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) SendRatesSavedEvent(ctx context.Context, event models.RatesSavedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockKafkaProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// memStorage keeps rows keyed by (date, code) the way the unique constraint does.
type memStorage struct {
	mu   sync.Mutex
	rows map[[2]string]models.RateRecord
	seq  int
}

func newMemStorage() *memStorage {
	return &memStorage{rows: make(map[[2]string]models.RateRecord)}
}

func (s *memStorage) UpsertRatesTx(ctx context.Context, tx pgx.Tx, date string, rates map[string]float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, rate := range rates {
		s.seq++
		key := [2]string{date, code}
		rec, ok := s.rows[key]
		if !ok {
			rec = models.RateRecord{ID: uuid.New(), Date: date, Currency: code}
		}
		rec.Rate = rate
		rec.SavedAt = time.Unix(int64(s.seq), 0)
		s.rows[key] = rec
	}
	return len(rates), nil
}

func (s *memStorage) GetRatesByDate(ctx context.Context, date string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rates := make(map[string]float64)
	for key, rec := range s.rows {
		if key[0] == date {
			rates[key[1]] = rec.Rate
		}
	}
	if len(rates) == 0 {
		return nil, custom_err.ErrNotFound
	}
	return rates, nil
}

func (s *memStorage) all() []models.RateRecord {
	records := make([]models.RateRecord, 0, len(s.rows))
	for _, rec := range s.rows {
		records = append(records, rec)
	}
	return records
}

func (s *memStorage) GetHistory(ctx context.Context, limit int) ([]models.RateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.all()
	sort.Slice(records, func(i, j int) bool { return records[i].SavedAt.After(records[j].SavedAt) })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *memStorage) GetCurrencyHistory(ctx context.Context, currency string, limit int) ([]models.RateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.RateRecord, 0)
	for _, rec := range s.all() {
		if rec.Currency == currency {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *memStorage) Ping(ctx context.Context) error { return nil }

func (s *memStorage) Close() {}

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
