package custom_err

import "errors"

var (
	// Storage errors
	ErrNotFound           = errors.New("resource not found")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Rate source errors
	ErrSourceUnavailable = errors.New("rate source unavailable")
	ErrSourceMalformed   = errors.New("rate source returned malformed data")

	// Auth errors
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenNotActive = errors.New("token not active yet")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidLimit    = errors.New("invalid limit")

	// Analytics errors
	ErrInsufficientData = errors.New("insufficient data")
)
