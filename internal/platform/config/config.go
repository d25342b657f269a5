package config

import (
	"os"
	"strings"
	"time"

	platformstrings "polledger/pkg/platform/strings"
)

// Config captures process level configuration for the ledger service.
type Config struct {
	Addr            string
	DatabaseURL     string
	RedisAddr       string
	KafkaBrokers    []string
	AuditTopic      string
	ShutdownTimeout time.Duration
}

// LinesCacheTTL bounds staleness of the cached lines-of-business catalog.
var LinesCacheTTL = 5 * time.Minute

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("POLLEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("AUDIT_TOPIC")
	if topic == "" {
		topic = "ledger.audit"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = platformstrings.DedupeAndTrim(strings.Split(raw, ","))
	}

	shutdown := 10 * time.Second
	if raw := os.Getenv("SHUTDOWN_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			shutdown = d
		}
	}

	return Config{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		KafkaBrokers:    brokers,
		AuditTopic:      topic,
		ShutdownTimeout: shutdown,
	}
}
