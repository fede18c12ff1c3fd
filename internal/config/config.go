package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	TablePrefix string

	// Kafka transport
	KafkaBrokers       string
	KafkaConsumerGroup string

	// Graph store
	GraphURI      string
	GraphUser     string
	GraphPassword string

	// Journal database
	DatabaseURL string

	// Archive storage: "fs" or "gcs"
	BlobBackend string
	BlobBucket  string
	BlobPath    string

	// Pruning
	Retention     time.Duration
	PruneInterval time.Duration

	// Engine lifecycle
	ArenaTTL      time.Duration
	SweepInterval time.Duration

	// Auth
	JWKSURL string

	// Log files: empty disables file logging
	LogDir string

	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: tablePrefix,

		KafkaBrokers:       getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "memoryd"),

		GraphURI:      getEnv("GRAPH_URI", "bolt://localhost:7687"),
		GraphUser:     getEnv("GRAPH_USER", "neo4j"),
		GraphPassword: getEnv("GRAPH_PASSWORD", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		BlobBackend: getEnv("BLOB_BACKEND", "fs"),
		BlobBucket:  getEnv("BLOB_BUCKET", ""),
		BlobPath:    getEnv("BLOB_PATH", "./archives"),

		Retention:     getDuration("RETENTION", 30*24*time.Hour),
		PruneInterval: getDuration("PRUNE_INTERVAL", time.Hour),

		ArenaTTL:      getDuration("ARENA_TTL", 30*time.Minute),
		SweepInterval: getDuration("SWEEP_INTERVAL", 5*time.Minute),

		JWKSURL: getEnv("JWKS_URL", ""),

		LogDir: getEnv("LOG_DIR", ""),

		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads a duration env var, accepting Go duration syntax
// ("45m") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
