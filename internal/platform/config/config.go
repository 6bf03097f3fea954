package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean; every
// field has a development default except external backends, which stay off
// when unset.
type Server struct {
	Addr string

	// DatabaseURL switches the visitor/audit stores and the capacity ledger
	// to PostgreSQL when set; unset runs everything in memory.
	DatabaseURL string

	// RedisURL switches the capacity ledger to Redis when set (and no
	// database is configured). Used for multi-replica deployments.
	RedisURL string

	// KafkaBrokers enables the audit sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// ResendAPIKey enables real email delivery; unset logs intents only.
	ResendAPIKey string
	EmailFrom    string

	JWTSigningKey string

	// OTLPEndpoint enables trace export when set, e.g. "localhost:4317".
	OTLPEndpoint string

	SweepInterval     time.Duration
	CapacityPerBucket int
	MaxBulk           int

	// RateLimitPerMinute caps requests per client IP. Zero disables.
	RateLimitPerMinute int
}

func FromEnv() Server {
	cfg := Server{
		Addr:              getenv("GATEHOUSE_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaTopic:        getenv("KAFKA_AUDIT_TOPIC", "gatehouse.visitor-audit"),
		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		EmailFrom:         getenv("EMAIL_FROM", "Gatehouse <noreply@gatehouse.local>"),
		JWTSigningKey:     getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SweepInterval:     getduration("SWEEP_INTERVAL", 5*time.Minute),
		CapacityPerBucket: getint("CAPACITY_PER_BUCKET", 20),
		MaxBulk:           getint("MAX_BULK", 20),
	}
	cfg.RateLimitPerMinute = getint("RATE_LIMIT_PER_MINUTE", 120)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
