package main

import (
	"cbr-rates/internal/cbr"
	"cbr-rates/internal/config"
	"cbr-rates/internal/models"
	"cbr-rates/internal/pusher"
	"cbr-rates/internal/service"
	"cbr-rates/pkg/logger"
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	dateFlag := flag.String("date", "", "дата курсов в формате YYYY-MM-DD, по умолчанию сегодня")
	envFile := flag.String("env", "config.env", "файл с переменными окружения")
	flag.Parse()

	cfg, err := config.LoadPusher(*envFile)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	day := time.Now()
	if *dateFlag != "" {
		day, err = models.ParseRateDate(*dateFlag)
		if err != nil {
			log.Fatalf("Некорректная дата %q: %v", *dateFlag, err)
		}
	}

	lf, err := logger.NewLoggerWithFile("", cfg.Log.Level)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	logg := lf.Logger.With(slog.String("job", "rates-pusher"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pusher.New(
		cbr.NewClient(cfg.CBR.BaseURL, cfg.CBR.Timeout, logg),
		service.NewIngestAuthService(cfg.Ingest.JWTSecret, cfg.Ingest.TokenTTL),
		cfg.Subject,
		cfg.APIURL,
		cfg.Timeout,
		logg,
	)

	if _, err := p.Push(ctx, day); err != nil {
		logg.Error("не удалось отправить курсы", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
