package config

import (
	"os"
	"strings"
	"time"
)

func boolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// LedgerRedisLockEnabled wraps cashier mutations in a redis lock on top of the row lock.
//
// Set via env:
// - LEDGER_REDIS_LOCK=true (default true; ignored when redis is not connected)
func LedgerRedisLockEnabled() bool {
	return boolFromEnv("LEDGER_REDIS_LOCK", true)
}

// SettingsCacheEnabled turns on the redis read-through cache for financial settings.
//
// Set via env:
// - SETTINGS_CACHE=true
func SettingsCacheEnabled() bool {
	return boolFromEnv("SETTINGS_CACHE", false)
}

// SettingsCacheTTL is the lifetime of a cached setting (SETTINGS_CACHE_TTL_SECONDS, default 300).
func SettingsCacheTTL() time.Duration {
	return time.Duration(intFromEnv("SETTINGS_CACHE_TTL_SECONDS", 300)) * time.Second
}

// LedgerLockTTL bounds how long a posting lock is held (LEDGER_LOCK_TTL_SECONDS, default 30).
func LedgerLockTTL() time.Duration {
	return time.Duration(intFromEnv("LEDGER_LOCK_TTL_SECONDS", 30)) * time.Second
}

// ServerPort returns PORT, defaulting to 8080.
func ServerPort() string {
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		return p
	}
	return "8080"
}

// AllowedOrigins reads CORS_ALLOWED_ORIGINS as a comma separated list. Empty means allow all.
func AllowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RateLimit reads the optional per-IP limiter settings.
//
// Set via env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func RateLimit() (limit int64, window time.Duration, enabled bool) {
	limit = int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
	if limit <= 0 {
		limit = 600
	}
	window = time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return limit, window, boolFromEnv("RATE_LIMIT_ENABLED", false)
}
