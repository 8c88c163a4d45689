package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes
const (
	FetchOK          = "ok"
	FetchUnavailable = "unavailable"
	FetchMalformed   = "malformed"
	FetchEmpty       = "empty"
)

type RateMetrics struct {
	Registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Запросы к ЦБ
	CBRFetchTotal    *prometheus.CounterVec
	CBRFetchDuration prometheus.Histogram

	// Сохранение курсов
	RatesSavedTotal   *prometheus.CounterVec
	StoreErrorsTotal  *prometheus.CounterVec
	IngestRejectTotal *prometheus.CounterVec
}

// NewRateMetrics регистрирует метрики в собственном реестре, чтобы тесты могли создавать экземпляры повторно.
func NewRateMetrics() *RateMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &RateMetrics{
		Registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Количество HTTP запросов",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Длительность обработки HTTP запросов",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		CBRFetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cbr_fetch_total",
				Help: "Запросы курсов к ЦБ по результату",
			},
			[]string{"result"},
		),
		CBRFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cbr_fetch_duration_seconds",
				Help:    "Длительность запроса курсов к ЦБ",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),

		RatesSavedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rates_saved_total",
				Help: "Количество сохраненных котировок",
			},
			[]string{"source"},
		),
		StoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_store_errors_total",
				Help: "Ошибки хранилища курсов",
			},
			[]string{"operation"},
		),
		IngestRejectTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_rejected_total",
				Help: "Отклоненные запросы на загрузку курсов",
			},
			[]string{"reason"},
		),
	}
}
