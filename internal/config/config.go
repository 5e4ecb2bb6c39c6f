package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Sinks lists the optional publication targets shared by every service.
// An empty address disables the corresponding sink.
type Sinks struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
	DatabaseURL        string
}

// Builder holds configuration for the CSV batch builder.
type Builder struct {
	Sinks
	SentimentModel string
}

// Worker holds configuration for the Kafka -> pulse worker.
type Worker struct {
	Sinks
	SentimentModel string
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	IdleTimeout    time.Duration
	MaxRecords     int
	OutputPath     string
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// Retention configures the cleanup loop.
type Retention struct {
	Sinks
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

func loadSinks(defaultES string) Sinks {
	return Sinks{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", defaultES),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "pulse_daily"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
	}
}

// LoadBuilder builds a Builder config from environment variables.
func LoadBuilder() (*Builder, error) {
	return &Builder{
		Sinks:          loadSinks(""),
		SentimentModel: getEnv("SENTIMENT_MODEL", "vader"),
	}, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Sinks:          loadSinks(""),
		SentimentModel: getEnv("SENTIMENT_MODEL", "vader"),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "postings_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "pulse-worker"),
		IdleTimeout:    getDuration("WORKER_IDLE_TIMEOUT", "10s"),
		MaxRecords:     getInt("WORKER_MAX_RECORDS", 100000),
		OutputPath:     getEnv("WORKER_OUTPUT_PATH", "output/pulse_daily.csv"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 100000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.IdleTimeout <= 0 {
		return nil, fmt.Errorf("WORKER_IDLE_TIMEOUT must be positive")
	}
	if c.MaxRecords <= 0 {
		return nil, fmt.Errorf("WORKER_MAX_RECORDS must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Sinks:     loadSinks("http://elasticsearch:9200"),
		Interval:  getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "2160h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
