package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{User: "app", Password: "pw", Host: "db", Port: "3306", Name: "realty"}
	assert.Equal(t, "app:pw@tcp(db:3306)/realty?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DSN())

	cfg.Host = "/cloudsql/proj:region:inst"
	assert.Equal(t, "app:pw@unix(/cloudsql/proj:region:inst)/realty?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DSN())
}

func TestConnectBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, connectBackoff(1, 30*time.Second))
	assert.Equal(t, 16*time.Second, connectBackoff(4, 30*time.Second))
	assert.Equal(t, 30*time.Second, connectBackoff(9, 30*time.Second))
	assert.Equal(t, 32*time.Second, connectBackoff(9, 0))
}

func TestEnvReaders(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "x")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "-4")

	cfg := DatabaseConfigFromEnv()
	assert.Equal(t, 7, cfg.MaxOpenConns)
	assert.Equal(t, 25, cfg.MaxIdleConns)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, AllowedOrigins())

	limit, window, enabled := RateLimit()
	assert.True(t, enabled)
	assert.Equal(t, int64(600), limit)
	assert.Equal(t, time.Minute, window)
}
