package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Broker.Host != "localhost" || cfg.Broker.Port != 4222 {
		t.Errorf("Expected default broker address, got %s:%d", cfg.Broker.Host, cfg.Broker.Port)
	}
	if cfg.Tasks.MapName != "tasks:map" {
		t.Errorf("Expected default map name, got %s", cfg.Tasks.MapName)
	}
	if cfg.Channels.MaxInFlight != 10 {
		t.Errorf("Expected default max in-flight 10, got %d", cfg.Channels.MaxInFlight)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datashare.toml")
	content := `
[broker]
host = "broker.example.com"
port = 14222
user = "datashare"
password = "secret"
heartbeat = "30s"
recovery_interval = "2s"

[channels]
dead_letter = "dlq"
max_in_flight = 5

[tasks]
map_name = "proj:map"
queue_name = "proj:queue"
queue_capacity = 64
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BrokerURL() != "nats://broker.example.com:14222" {
		t.Errorf("Unexpected broker URL: %s", cfg.BrokerURL())
	}
	if cfg.Heartbeat() != 30*time.Second {
		t.Errorf("Expected 30s heartbeat, got %v", cfg.Heartbeat())
	}
	if cfg.RecoveryInterval() != 2*time.Second {
		t.Errorf("Expected 2s recovery interval, got %v", cfg.RecoveryInterval())
	}
	if cfg.Channels.DeadLetter != "dlq" {
		t.Errorf("Expected dead letter dlq, got %s", cfg.Channels.DeadLetter)
	}
	if cfg.Tasks.MapName != "proj:map" {
		t.Errorf("Expected map name proj:map, got %s", cfg.Tasks.MapName)
	}
	// Unset fields keep their defaults
	if cfg.Store.Bucket != "datashare-tasks" {
		t.Errorf("Expected default bucket, got %s", cfg.Store.Bucket)
	}
}

func TestEnvOverridesBrokerURL(t *testing.T) {
	t.Setenv(EnvBrokerURL, "nats://override:4333")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BrokerURL() != "nats://override:4333" {
		t.Errorf("Expected env override, got %s", cfg.BrokerURL())
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := Default()
	cfg.Tasks.QueueCapacity = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for zero queue capacity")
	}

	cfg = Default()
	cfg.Broker.Host = ""
	cfg.Broker.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for missing broker address")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[broker\nhost ="), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed TOML")
	}
}
