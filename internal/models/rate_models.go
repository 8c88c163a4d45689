package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout формат даты во всех публичных API сервиса
const DateLayout = "2006-01-02"

// Курсы хранятся в NUMERIC(18,6): не больше 12 знаков до запятой и 6 после.
const (
	RatePrecision = 6
	MaxRate       = 1e12
)

// RateRecord одна сохраненная котировка валюты на дату
type RateRecord struct {
	ID       uuid.UUID `json:"-" db:"id"`
	Date     string    `json:"date" db:"rate_date"`
	Currency string    `json:"currency" db:"currency_code"`
	Rate     float64   `json:"rate" db:"rate"`
	SavedAt  time.Time `json:"saved_at" db:"saved_at"`
}

// RatesResponse ответ на запрос курсов за дату. Rates == nil означает, что данных нет.
type RatesResponse struct {
	Date  string             `json:"date" example:"2024-03-01"`
	Rates map[string]float64 `json:"rates"`
}

// HistoryResponse ответ со списком последних сохраненных записей
type HistoryResponse struct {
	History []RateRecord `json:"history"`
}

// IngestRequest тело запроса на загрузку курсов внешним заданием
type IngestRequest struct {
	Date  string             `json:"date" validate:"required,datetime=2006-01-02" example:"2024-03-01"`
	Rates map[string]float64 `json:"rates" validate:"required,min=1,dive,keys,len=3,alpha,uppercase,endkeys,gt=0,lt=1000000000000"`
}

// IngestResponse ответ на успешную загрузку
type IngestResponse struct {
	Status string `json:"status" example:"ok"`
	Saved  int    `json:"saved" example:"34"`
}

// AnalyticsResponse статистика по одной валюте за окно последних дат
type AnalyticsResponse struct {
	Currency string  `json:"currency" example:"USD"`
	Days     int     `json:"days" example:"30"`
	Count    int     `json:"count" example:"21"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Trend    string  `json:"trend" example:"up"`
	Latest   float64 `json:"latest"`
	Oldest   float64 `json:"oldest"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет дату и курсы запроса на загрузку
func (r IngestRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed on %q", fe.Namespace(), fe.Tag())
		}
		return err
	}
	return nil
}

// RoundedRates округляет курсы до RatePrecision знаков, как это сделала бы колонка rate.
// Курс, который после округления становится нулем, считается ошибкой ввода.
func (r IngestRequest) RoundedRates() (map[string]float64, error) {
	rounded := make(map[string]float64, len(r.Rates))
	for code, rate := range r.Rates {
		d := RoundRate(decimal.NewFromFloat(rate))
		if !d.IsPositive() {
			return nil, fmt.Errorf("rate for %s rounds to zero at %d decimal places", code, RatePrecision)
		}
		rounded[code] = d.InexactFloat64()
	}
	return rounded, nil
}

func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePrecision)
}

// ParseRateDate разбирает дату в формате YYYY-MM-DD. Несуществующие даты (2024-13-40) отклоняются.
func ParseRateDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// NormalizeCurrency приводит код валюты к верхнему регистру
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCurrencyCode проверяет трехбуквенный код ISO 4217
func IsValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
