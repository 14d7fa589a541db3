package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Load config without a config file (use defaults)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	// Verify some default values
	if cfg.Server.Port != 8085 {
		t.Errorf("Server.Port = %d, want 8085", cfg.Server.Port)
	}

	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}

	if cfg.Engine.Mode != "aws" {
		t.Errorf("Engine.Mode = %q, want %q", cfg.Engine.Mode, "aws")
	}

	if cfg.Engine.Service != "es" {
		t.Errorf("Engine.Service = %q, want %q", cfg.Engine.Service, "es")
	}

	if cfg.Engine.RequestTimeout != 30*time.Second {
		t.Errorf("Engine.RequestTimeout = %v, want 30s", cfg.Engine.RequestTimeout)
	}

	if !cfg.Engine.TLSSkipVerify {
		t.Error("Engine.TLSSkipVerify should be true by default")
	}

	if cfg.Engine.Indices.Notifications != "notifications" {
		t.Errorf("Indices.Notifications = %q, want %q", cfg.Engine.Indices.Notifications, "notifications")
	}

	if cfg.Engine.Indices.Devices != "devices" {
		t.Errorf("Indices.Devices = %q, want %q", cfg.Engine.Indices.Devices, "devices")
	}

	if cfg.Engine.Indices.Registrations != "registrations" {
		t.Errorf("Indices.Registrations = %q, want %q", cfg.Engine.Indices.Registrations, "registrations")
	}

	if cfg.Ingestion.MaxBodySize != 1048576 {
		t.Errorf("Ingestion.MaxBodySize = %d, want 1048576", cfg.Ingestion.MaxBodySize)
	}

	if cfg.Ingestion.RateLimitEnabled {
		t.Error("Ingestion.RateLimitEnabled should be false by default")
	}

	if cfg.Ingestion.RateLimitWindow != time.Minute {
		t.Errorf("Ingestion.RateLimitWindow = %v, want 1m", cfg.Ingestion.RateLimitWindow)
	}

	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled should be false by default")
	}

	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis.URL = %q, want %q", cfg.Redis.URL, "redis://localhost:6379/0")
	}

	if cfg.DLQ.Enabled {
		t.Error("DLQ.Enabled should be false by default")
	}

	if cfg.DLQ.Backend != "file" {
		t.Errorf("DLQ.Backend = %q, want %q", cfg.DLQ.Backend, "file")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	// When a specific file path is given and doesn't exist, it should error
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() with non-existent file path should return error")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9099
engine:
  mode: basic
  endpoint: http://localhost:9200
  username: bridge
  indices:
    notifications: notif-v2
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9099 {
		t.Errorf("Server.Port = %d, want 9099", cfg.Server.Port)
	}
	if cfg.Engine.Mode != "basic" {
		t.Errorf("Engine.Mode = %q, want %q", cfg.Engine.Mode, "basic")
	}
	if cfg.Engine.Endpoint != "http://localhost:9200" {
		t.Errorf("Engine.Endpoint = %q, want %q", cfg.Engine.Endpoint, "http://localhost:9200")
	}
	if cfg.Engine.Indices.Notifications != "notif-v2" {
		t.Errorf("Indices.Notifications = %q, want %q", cfg.Engine.Indices.Notifications, "notif-v2")
	}

	// Untouched keys keep their defaults
	if cfg.Engine.Indices.Devices != "devices" {
		t.Errorf("Indices.Devices = %q, want default %q", cfg.Engine.Indices.Devices, "devices")
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("invalid: yaml: : :"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("Load() with invalid YAML should return error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		cfg.Engine.Endpoint = "https://search-devicepulse.eu-west-1.es.amazonaws.com"
		cfg.Engine.Region = "eu-west-1"
		return cfg
	}

	t.Run("valid aws config", func(t *testing.T) {
		cfg := base()
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("missing endpoint", func(t *testing.T) {
		cfg := base()
		cfg.Engine.Endpoint = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() should fail without an endpoint")
		}
	})

	t.Run("aws mode requires region", func(t *testing.T) {
		cfg := base()
		cfg.Engine.Region = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() should fail without a region in aws mode")
		}
	})

	t.Run("basic mode needs no region", func(t *testing.T) {
		cfg := base()
		cfg.Engine.Mode = "basic"
		cfg.Engine.Region = ""
		cfg.Engine.Endpoint = "http://localhost:9200"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := base()
		cfg.Engine.Mode = "carrier-pigeon"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() should reject unknown engine mode")
		}
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() should reject port 0")
		}
	})

	t.Run("rate limit requests must be positive when enabled", func(t *testing.T) {
		cfg := base()
		cfg.Ingestion.RateLimitEnabled = true
		cfg.Ingestion.RateLimitRequests = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() should reject zero rate limit requests")
		}
	})

	t.Run("unknown dlq backend", func(t *testing.T) {
		cfg := base()
		cfg.DLQ.Enabled = true
		cfg.DLQ.Backend = "tape"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() should reject unknown dlq backend")
		}
	})
}
