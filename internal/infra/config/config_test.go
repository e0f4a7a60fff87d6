package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Errorf("Env = %q, want dev", cfg.Env)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Errorf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("StoreTimeout = %v, want 5s", cfg.StoreTimeout)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.NotificationTopic() != "message-notifications" {
		t.Errorf("NotificationTopic = %q", cfg.NotificationTopic())
	}
}

func TestLoadBackendValidation(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	if _, err := Load(); err == nil {
		t.Error("expected an error for an unsupported backend")
	}

	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "")
	if _, err := Load(); err == nil {
		t.Error("mongo backend without MONGO_URI must fail")
	}

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != StoreMongo || cfg.MongoDB != "dmbox" {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("STORE_BACKEND", "scylla")
	if _, err := Load(); err == nil {
		t.Error("scylla backend without SCYLLA_HOSTS must fail")
	}
}

func TestLoadListsAndOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "scylla")
	t.Setenv("SCYLLA_HOSTS", " node1:9042, node2:9042 ,,")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC_PREFIX", "staging.")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("BCRYPT_COST", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.ScyllaHosts) != 2 || cfg.ScyllaHosts[0] != "node1:9042" {
		t.Errorf("ScyllaHosts = %v", cfg.ScyllaHosts)
	}
	if len(cfg.KafkaBrokers) != 2 {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.NotificationTopic() != "staging.message-notifications" {
		t.Errorf("NotificationTopic = %q", cfg.NotificationTopic())
	}
	if cfg.StoreTimeout != 250*time.Millisecond {
		t.Errorf("StoreTimeout = %v", cfg.StoreTimeout)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d", cfg.BcryptCost)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "five seconds")
	if _, err := Load(); err == nil {
		t.Error("expected an error for a malformed duration")
	}
}
