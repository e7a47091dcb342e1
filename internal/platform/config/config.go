package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Thresholds, retry counts,
// and TTLs are deliberately configuration rather than constants; the
// defaults suit development.
type Server struct {
	Addr          string
	JWTSigningKey string
	TokenTTL      time.Duration

	// MatchThreshold is the maximum template distance the Identity Gate
	// accepts as a match.
	MatchThreshold float64

	// StageRetries bounds retries of a failing adapter call inside one
	// stage execution; BaseBackoff doubles per attempt.
	StageRetries int
	BaseBackoff  time.Duration

	RedisURL    string
	PostgresURL string
}

// RedisConfig carries connection tuning for the optional Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	addr := os.Getenv("CAREFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:           addr,
		JWTSigningKey:  jwtSigningKey,
		TokenTTL:       durationEnv("GATE_TOKEN_TTL", 15*time.Minute),
		MatchThreshold: floatEnv("MATCH_THRESHOLD", 0.25),
		StageRetries:   intEnv("STAGE_RETRIES", 3),
		BaseBackoff:    durationEnv("STAGE_BASE_BACKOFF", 100*time.Millisecond),
		RedisURL:       os.Getenv("REDIS_URL"),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
	}
}

// Redis derives the Redis client config with pool defaults.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
