package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends the server can run against.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
	StoreScylla = "scylla"
)

// Config aggregates application configuration loaded from environment
// variables.
type Config struct {
	Env      string
	HTTPAddr string

	StoreBackend string
	StoreTimeout time.Duration

	MongoURI string
	MongoDB  string

	ScyllaHosts       []string
	ScyllaKeyspace    string
	ScyllaUsername    string
	ScyllaPassword    string
	ScyllaTimeout     time.Duration
	ReplicationFactor int

	KafkaBrokers     []string
	KafkaTopicPrefix string
	KafkaGroupID     string

	SessionTTL   time.Duration
	BcryptCost   int
	NotifySecret string
}

// NotificationTopic is where send fanout events land.
func (c Config) NotificationTopic() string {
	return c.KafkaTopicPrefix + "message-notifications"
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "dmbox"),
		ScyllaHosts:      splitAndTrim(getEnv("SCYLLA_HOSTS", "")),
		ScyllaKeyspace:   getEnv("SCYLLA_KEYSPACE", "dmbox"),
		ScyllaUsername:   strings.TrimSpace(os.Getenv("SCYLLA_USERNAME")),
		ScyllaPassword:   strings.TrimSpace(os.Getenv("SCYLLA_PASSWORD")),
		KafkaBrokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "dmbox-push-worker"),
		NotifySecret:     os.Getenv("NOTIFY_SECRET"),
	}

	switch cfg.StoreBackend {
	case StoreMemory, StoreMongo, StoreScylla:
	default:
		return Config{}, fmt.Errorf("unsupported STORE_BACKEND: %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == StoreMongo && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required for the mongo backend")
	}
	if cfg.StoreBackend == StoreScylla && len(cfg.ScyllaHosts) == 0 {
		return Config{}, fmt.Errorf("SCYLLA_HOSTS is required for the scylla backend")
	}

	storeTimeout, err := parseDurationEnv("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreTimeout = storeTimeout

	scyllaTimeout, err := parseDurationEnv("SCYLLA_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.ScyllaTimeout = scyllaTimeout

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = sessionTTL

	cost, err := parseIntEnv("BCRYPT_COST", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.BcryptCost = cost

	rf, err := parseIntEnv("SCYLLA_REPLICATION_FACTOR", 1)
	if err != nil {
		return Config{}, err
	}
	if rf < 1 {
		rf = 1
	}
	cfg.ReplicationFactor = rf

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}
