package main

import (
	_ "cbr-rates/docs"
	"cbr-rates/internal/app"
	"log"
)

// @title           CBR Rates API
// @version         1.0
// @description     Курсы валют ЦБ РФ: кэш в PostgreSQL, история и статистика по валютам

// @contact.name   API Support

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app, err := app.NewApp()
	if err != nil {
		log.Fatalf("Ошибка создания приложения: %v", err)
	}

	if err := app.BuildRatesLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя курсов: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Ошибка при работе приложения: %v", err)
	}
}
