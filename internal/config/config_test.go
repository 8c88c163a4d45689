package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_USER", "rates")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "rates")
	t.Setenv("INGEST_JWT_SECRET", "jwt-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, 10*time.Second, cfg.CBR.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Ingest.TokenTTL)
	assert.Equal(t, "60-M", cfg.RateLimit.Rate)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "rates-saved", cfg.Kafka.Topic)
}

func TestLoad_FromEnvFile(t *testing.T) {
	setRequiredEnv(t)
	envFile := filepath.Join(t.TempDir(), "config.env")
	require.NoError(t, os.WriteFile(envFile, []byte("APP_PORT=9090\nKAFKA_BROKERS=k1:9092,k2:9092\nCBR_TIMEOUT=3s\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("APP_PORT")
		os.Unsetenv("KAFKA_BROKERS")
		os.Unsetenv("CBR_TIMEOUT")
	})

	cfg, err := Load(envFile)

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.CBR.Timeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INGEST_JWT_SECRET", "")
	os.Unsetenv("INGEST_JWT_SECRET")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))

	assert.Error(t, err)
}

func TestDBConfig_URLs(t *testing.T) {
	d := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "rates", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rates sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/rates?sslmode=disable", d.MigrationURL())
}

func TestLoadPusher_NoDatabaseRequired(t *testing.T) {
	t.Setenv("INGEST_JWT_SECRET", "jwt-secret")

	cfg, err := LoadPusher(filepath.Join(t.TempDir(), "absent.env"))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, "rates-pusher", cfg.Subject)
	assert.Equal(t, "jwt-secret", cfg.Ingest.JWTSecret)
}
