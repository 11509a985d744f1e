package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Snapshot backend selectors.
const (
	BackendBigQuery = "bigquery"
	BackendMongo    = "mongo"
)

// Config carries everything the binaries need. Values come from the
// environment, optionally seeded from a .env file in development.
type Config struct {
	// Port the API server listens on.
	Port string

	// LogLevel is a zerolog level name.
	LogLevel string

	// SnapshotBackend selects the storage implementation: "bigquery" or
	// "mongo".
	SnapshotBackend string

	// BigQuery settings, used when SnapshotBackend is "bigquery".
	BigQueryProject string
	BigQueryDataset string

	// Mongo settings, used when SnapshotBackend is "mongo".
	MongoURI      string
	MongoDatabase string

	// ReportBucket is the GCS bucket archived reports go to. Empty
	// disables archiving.
	ReportBucket string

	// MonitorSchedule is the cron expression the monitor binary runs on.
	MonitorSchedule string

	// MonitorUsers lists the user IDs the monitor evaluates each tick.
	MonitorUsers []string

	// Job queue sizing for the API binary.
	JobQueueSize int
	JobWorkers   int
}

// Load reads configuration from the environment. A .env file is loaded
// first when present; real environment variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SnapshotBackend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", BackendMongo)),
		BigQueryProject: os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "finance"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "finzora"),
		ReportBucket:    os.Getenv("REPORT_BUCKET"),
		MonitorSchedule: getEnv("MONITOR_SCHEDULE", "@every 15m"),
		MonitorUsers:    splitList(os.Getenv("MONITOR_USERS")),
		JobQueueSize:    getEnvInt("JOB_QUEUE_SIZE", 64),
		JobWorkers:      getEnvInt("JOB_WORKERS", 2),
	}

	switch cfg.SnapshotBackend {
	case BackendBigQuery:
		if cfg.BigQueryProject == "" {
			return nil, fmt.Errorf("Load: BIGQUERY_PROJECT is required when SNAPSHOT_BACKEND=bigquery")
		}
	case BackendMongo:
		// defaults suffice
	default:
		return nil, fmt.Errorf("Load: unknown SNAPSHOT_BACKEND %q", cfg.SnapshotBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
