package models

import "time"

const RatesSavedEventType = "rates.saved"

const (
	SourceCBR    = "cbr"
	SourceIngest = "ingest"
)

// RatesSavedEvent одно событие на дату: все курсы, сохраненные одной транзакцией.
type RatesSavedEvent struct {
	EventID    string             `json:"event_id"`
	Date       string             `json:"date"`
	Source     string             `json:"source"` // cbr или ingest
	Currencies int                `json:"currencies"`
	Rates      map[string]float64 `json:"rates"`
	SavedAt    time.Time          `json:"saved_at"`
}
