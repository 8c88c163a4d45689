package storage

const (
	// Rate queries
	UpsertRateQuery = `
		INSERT INTO currency_rates (id, rate_date, currency_code, rate)
		VALUES ($1, $2::date, $3, $4)
		ON CONFLICT (rate_date, currency_code)
		DO UPDATE SET rate = EXCLUDED.rate, saved_at = now()
	`

	GetRatesByDateQuery = `
		SELECT currency_code, rate
		FROM currency_rates
		WHERE rate_date = $1::date
		ORDER BY currency_code
	`

	// Последние сохраненные записи, свежие первыми
	GetHistoryQuery = `
		SELECT id, to_char(rate_date, 'YYYY-MM-DD'), currency_code, rate, saved_at
		FROM currency_rates
		ORDER BY saved_at DESC, currency_code
		LIMIT $1
	`

	// История одной валюты по датам, свежие первыми
	GetCurrencyHistoryQuery = `
		SELECT id, to_char(rate_date, 'YYYY-MM-DD'), currency_code, rate, saved_at
		FROM currency_rates
		WHERE currency_code = $1
		ORDER BY rate_date DESC
		LIMIT $2
	`
)
