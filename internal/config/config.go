package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	DLQ       DLQConfig       `mapstructure:"dlq"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// EngineConfig describes the search engine the bridge writes to.
// Mode "aws" signs every request with SigV4 against a managed domain;
// mode "basic" talks to a self-hosted cluster with basic auth.
type EngineConfig struct {
	Mode           string        `mapstructure:"mode"`
	Endpoint       string        `mapstructure:"endpoint"`
	Region         string        `mapstructure:"region"`
	Service        string        `mapstructure:"service"`
	AccessKey      string        `mapstructure:"access_key"`
	SecretKey      string        `mapstructure:"secret_key"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TLSSkipVerify  bool          `mapstructure:"tls_skip_verify"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Indices        IndexConfig   `mapstructure:"indices"`
}

// IndexConfig carries the target index names. The defaults are the wire
// contract; overriding them is an operational escape hatch, not a feature.
type IndexConfig struct {
	Notifications string `mapstructure:"notifications"`
	Devices       string `mapstructure:"devices"`
	Registrations string `mapstructure:"registrations"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type IngestionConfig struct {
	MaxBodySize       int           `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type DLQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	NATSURL string `mapstructure:"nats_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("engine.mode", "aws")
	v.SetDefault("engine.endpoint", "")
	v.SetDefault("engine.region", "")
	v.SetDefault("engine.service", "es")
	v.SetDefault("engine.username", "admin")
	v.SetDefault("engine.tls_skip_verify", true)
	v.SetDefault("engine.request_timeout", "30s")
	v.SetDefault("engine.indices.notifications", "notifications")
	v.SetDefault("engine.indices.devices", "devices")
	v.SetDefault("engine.indices.registrations", "registrations")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("ingestion.max_body_size", 1048576)
	v.SetDefault("ingestion.rate_limit_enabled", false)
	v.SetDefault("ingestion.rate_limit_requests", 600)
	v.SetDefault("ingestion.rate_limit_window", "1m")
	v.SetDefault("dlq.enabled", false)
	v.SetDefault("dlq.backend", "file")
	v.SetDefault("dlq.path", "/var/lib/devicepulse/dlq")
	v.SetDefault("dlq.nats_url", "nats://localhost:4222")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/devicepulse")
	}

	// Environment variables override
	v.SetEnvPrefix("DEVICEPULSE")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate fails fast on configuration the bridge cannot start with.
// Signing requires an endpoint and region before the first callback arrives.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	switch c.Engine.Mode {
	case "aws":
		if c.Engine.Endpoint == "" {
			return fmt.Errorf("engine.endpoint is required")
		}
		if c.Engine.Region == "" {
			return fmt.Errorf("engine.region is required in aws mode")
		}
	case "basic":
		if c.Engine.Endpoint == "" {
			return fmt.Errorf("engine.endpoint is required")
		}
	default:
		return fmt.Errorf("unknown engine mode %q", c.Engine.Mode)
	}

	if c.Ingestion.RateLimitEnabled && c.Ingestion.RateLimitRequests <= 0 {
		return fmt.Errorf("ingestion.rate_limit_requests must be positive when rate limiting is enabled")
	}

	if c.DLQ.Enabled {
		switch c.DLQ.Backend {
		case "file", "jetstream":
		default:
			return fmt.Errorf("unknown dlq backend %q", c.DLQ.Backend)
		}
	}

	return nil
}
