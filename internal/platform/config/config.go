package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean; cmd/server loads an optional .env file
// first via godotenv.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	JWTSigningKey string

	// VerifyBaseURL is the public prefix printed on rendered certificates,
	// e.g. https://certitrack.app/verify.
	VerifyBaseURL string

	// AlertHorizonDays is how far ahead the expiry scanner looks.
	AlertHorizonDays int
	// AlertScanInterval is how often the expiry worker wakes up.
	AlertScanInterval time.Duration

	// RenderTimeout bounds the external document rendering call during
	// certificate issuance.
	RenderTimeout time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	return Config{
		Addr:              envOr("CERTITRACK_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("CERTITRACK_DATABASE_URL"),
		RedisURL:          os.Getenv("CERTITRACK_REDIS_URL"),
		JWTSigningKey:     envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		VerifyBaseURL:     envOr("CERTITRACK_VERIFY_BASE_URL", "https://certitrack.app/verify"),
		AlertHorizonDays:  envIntOr("CERTITRACK_ALERT_HORIZON_DAYS", 30),
		AlertScanInterval: envDurationOr("CERTITRACK_ALERT_SCAN_INTERVAL", 24*time.Hour),
		RenderTimeout:     envDurationOr("CERTITRACK_RENDER_TIMEOUT", 15*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
