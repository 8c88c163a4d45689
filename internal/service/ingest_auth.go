package service

import (
	"cbr-rates/internal/custom_err"
	"cbr-rates/internal/models"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "cbr-rates"

type IngestAuth interface {
	ValidateToken(tokenString string) (*models.IngestClaims, error)
}

type IngestAuthService struct {
	secret []byte
	ttl    time.Duration
}

func NewIngestAuthService(secret string, ttl time.Duration) *IngestAuthService {
	return &IngestAuthService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// GenerateToken выпускает токен для внешнего задания загрузки курсов.
func (s *IngestAuthService) GenerateToken(subject string) (string, error) {
	const op = "service.GenerateToken"

	if subject == "" {
		return "", fmt.Errorf("%s: %w: empty subject", op, custom_err.ErrInvalidInput)
	}

	now := time.Now()
	claims := models.IngestClaims{
		Scope: models.IngestScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

func (s *IngestAuthService) ValidateToken(tokenString string) (*models.IngestClaims, error) {
	claims := &models.IngestClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, custom_err.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, custom_err.ErrTokenNotActive
		}
		return nil, custom_err.ErrInvalidToken
	}

	if !token.Valid {
		return nil, custom_err.ErrInvalidToken
	}

	if claims.Scope != models.IngestScope || claims.Subject == "" {
		return nil, custom_err.ErrInvalidToken
	}

	return claims, nil
}
