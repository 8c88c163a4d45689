package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort       string `envconfig:"APP_PORT" default:"8080"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
	Log            LogConfig
	DB             DBConfig
	CBR            CBRConfig
	Ingest         IngestConfig
	RateLimit      RateLimitConfig
	Kafka          KafkaConfig
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE"  default:"rates.log"`
}

type DBConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"     required:"true"`
	Port     string `envconfig:"POSTGRES_PORT"     required:"true"`
	User     string `envconfig:"POSTGRES_USER"     required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DB"       required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE"  default:"disable"`
}

type CBRConfig struct {
	BaseURL string        `envconfig:"CBR_BASE_URL" default:"https://www.cbr.ru/scripts/XML_daily.asp"`
	Timeout time.Duration `envconfig:"CBR_TIMEOUT"  default:"10s"`
}

type IngestConfig struct {
	JWTSecret string        `envconfig:"INGEST_JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"INGEST_TOKEN_TTL"  default:"15m"`
}

// RateLimitConfig.Rate в формате ulule/limiter: "60-M", "10-S", "1000-H".
type RateLimitConfig struct {
	Rate string `envconfig:"RATE_LIMIT" default:"60-M"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"rates-saved"`
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
}

func NewConfig() (*Config, error) {
	return Load("config.env")
}

// Load читает envFile (если он есть), затем переменные окружения.
func Load(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: не удалось загрузить файл %s, используются только системные переменные окружения: %v", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return &cfg, nil
}

func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func (d *DBConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// PusherConfig настройки задания cmd/rates-pusher; база данных ему не нужна.
type PusherConfig struct {
	APIURL  string        `envconfig:"RATES_API_URL" default:"http://localhost:8080"`
	Subject string        `envconfig:"PUSHER_SUBJECT" default:"rates-pusher"`
	Timeout time.Duration `envconfig:"PUSHER_TIMEOUT" default:"30s"`
	Log     LogConfig
	CBR     CBRConfig
	Ingest  IngestConfig
}

func LoadPusher(envFile string) (*PusherConfig, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: не удалось загрузить файл %s, используются только системные переменные окружения: %v", envFile, err)
	}

	var cfg PusherConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return &cfg, nil
}
