package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration for the ledger engine.
type Server struct {
	Addr string

	// Engine policies. Empty values fall back to engine defaults.
	BidAmountPolicy    string
	AllowDraftState    bool
	DuplicateBidPolicy string

	// Ledger persistence. Empty DSN keeps the log in memory.
	PostgresDSN   string
	MigrationsDir string

	Kafka KafkaConfig
	Redis RedisConfig

	ShutdownTimeout time.Duration
}

// KafkaConfig configures the relay producer. Empty brokers disable the relay.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig configures relay checkpoint storage. Empty URL means checkpoints
// stay in memory.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TENDER_LEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "tender-ledger.events"
	}
	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:               addr,
		BidAmountPolicy:    os.Getenv("BID_AMOUNT_POLICY"),
		AllowDraftState:    os.Getenv("ALLOW_DRAFT_STATE") == "true",
		DuplicateBidPolicy: os.Getenv("DUPLICATE_BID_POLICY"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		MigrationsDir:      migrationsDir,
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}
