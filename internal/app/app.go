package app

import (
	"cbr-rates/internal/api/handlers"
	"cbr-rates/internal/api/middlew"
	"cbr-rates/internal/cbr"
	"cbr-rates/internal/config"
	"cbr-rates/internal/db"
	"cbr-rates/internal/kafka"
	"cbr-rates/internal/metrics"
	"cbr-rates/internal/server"
	"cbr-rates/internal/service"
	"cbr-rates/internal/storage/postgres"
	"cbr-rates/pkg/logger"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

type App struct {
	log           *slog.Logger
	server        *server.Server
	pool          *pgxpool.Pool
	logFile       *os.File
	cfg           *config.Config
	metrics       *metrics.RateMetrics
	kafkaProducer kafka.Producer
	rateService   *service.RateService
	ingestAuth    *service.IngestAuthService
}

func NewApp() (*App, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации конфига: %w", err)
	}

	loggerWithFile, err := logger.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации логгера: %w", err)
	}
	log := loggerWithFile.Logger
	log.Info("инициализация приложения")
	log.Info("конфигурация загружена", slog.String("port", cfg.HTTPPort))

	log.Info("выполнение миграций базы данных")
	if err := db.RunMigrations(cfg.DB.MigrationURL(), cfg.MigrationsPath, log); err != nil {
		return nil, fmt.Errorf("ошибка выполнения миграций: %w", err)
	}
	log.Info("миграции успешно применены")

	pool, err := db.NewPool(context.Background(), cfg.DB.DSN(), db.DefaultPoolConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}
	log.Info("подключение к базе данных установлено")

	var kafkaProducer kafka.Producer
	if cfg.Kafka.Enabled {
		log.Info("инициализация kafka producer", slog.Any("brokers", cfg.Kafka.Brokers))
		kafkaProducer, err = kafka.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка инициализации kafka: %w", err)
		}
	} else {
		log.Info("kafka отключен в конфигурации")
		kafkaProducer = kafka.NewNoOpProducer(log)
	}

	m := metrics.NewRateMetrics()

	srv := server.NewServer(cfg.HTTPPort)
	log.Info("сервер инициализирован", slog.String("port", cfg.HTTPPort))
	srv.Router.Use(middleware.RequestID)
	srv.Router.Use(middlew.WithLogger(log))
	srv.Router.Use(middleware.RealIP)
	srv.Router.Use(middleware.Recoverer)
	srv.Router.Use(middlew.WithMetrics(m))
	srv.RegisterSwagger()
	srv.RegisterMetrics(m.Registry)

	return &App{
		log:           log,
		server:        srv,
		pool:          pool,
		logFile:       loggerWithFile.LogFile,
		cfg:           cfg,
		metrics:       m,
		kafkaProducer: kafkaProducer,
		ingestAuth:    service.NewIngestAuthService(cfg.Ingest.JWTSecret, cfg.Ingest.TokenTTL),
	}, nil
}

func (a *App) BuildRatesLayer() error {
	if a.kafkaProducer == nil {
		err := errors.New("kafkaProducer not initialized")
		a.log.Error(err.Error())
		return err
	}

	rate, err := limiter.NewRateFromFormatted(a.cfg.RateLimit.Rate)
	if err != nil {
		return fmt.Errorf("некорректный RATE_LIMIT %q: %w", a.cfg.RateLimit.Rate, err)
	}
	rateLimiter := limiter.New(memory.NewStore(), rate)

	txManager := service.NewPgxTxManager(a.pool)
	rateRepo := postgres.NewPostgresStorage(a.pool)
	cbrClient := cbr.NewClient(a.cfg.CBR.BaseURL, a.cfg.CBR.Timeout, a.log)

	a.rateService = service.NewRateService(
		rateRepo,
		txManager,
		cbrClient,
		a.kafkaProducer,
		a.metrics,
		a.log,
	)

	rateHandler := handlers.NewRateHandler(a.rateService)

	a.server.Router.Get("/health", rateHandler.Health)

	a.server.Router.Route("/api", func(r chi.Router) {
		r.With(middlew.RateLimit(rateLimiter)).Get("/rates", rateHandler.GetRates)
		r.Get("/history", rateHandler.GetHistory)
		r.Get("/analytics", rateHandler.GetAnalytics)
		r.With(middlew.RequireIngestToken(a.ingestAuth)).Post("/ingest", rateHandler.Ingest)
	})

	a.log.Info("слой 'rates' собран и маршруты зарегистрированы",
		slog.String("rate_limit", a.cfg.RateLimit.Rate),
		slog.String("cbr_url", a.cfg.CBR.BaseURL))
	return nil
}

func (a *App) Run() error {
	a.log.Info("сервер запускается")

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("ошибка запуска сервера: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-serverErr:
		a.log.Error("сервер завершился с ошибкой", slog.String("error", runErr.Error()))
	case sig := <-shutdownChan:
		a.log.Info("получен сигнал завершения", slog.String("signal", sig.String()))
	}

	a.log.Info("приложение останавливается")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("ошибка при остановке http сервера", slog.String("error", err.Error()))
	}

	if a.kafkaProducer != nil {
		a.log.Info("закрытие kafka producer")
		if err := a.kafkaProducer.Close(); err != nil {
			a.log.Error("ошибка при закрытии kafka producer", slog.String("error", err.Error()))
		}
	}

	a.log.Info("закрытие соединения с базой данных")
	a.pool.Close()

	a.log.Info("приложение остановлено")
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "ошибка при закрытии файла логов: %v\n", err)
		}
	}

	return runErr
}
