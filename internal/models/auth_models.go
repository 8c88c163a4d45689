package models

import "github.com/golang-jwt/jwt/v5"

// IngestScope право на загрузку курсов через POST /api/ingest
const IngestScope = "rates:ingest"

// IngestClaims claims токена внешнего задания загрузки курсов
type IngestClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}
