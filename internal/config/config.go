// Package config loads the server's process-wide configuration: YAML
// file plus environment variable substitution and override, in the
// teacher's config package style (gopkg.in/yaml.v3, a LoadFromFile/
// Load/MustLoad surface, setDefaults, Validate).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level process configuration: listen address,
// durable/volatile store connections, boundary adapter credentials, and
// protocol timing overrides (spec §6: "no hidden globals").
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Listen      ListenConfig   `yaml:"listen" json:"listen"`
	Durable     DurableConfig  `yaml:"durable" json:"durable"`
	Volatile    VolatileConfig `yaml:"volatile" json:"volatile"`
	Adapters    AdaptersConfig `yaml:"adapters" json:"adapters"`
	Protocol    ProtocolConfig `yaml:"protocol" json:"protocol"`
	Logging     LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics" json:"metrics"`
	Health      HealthConfig   `yaml:"health" json:"health"`
}

// ListenConfig is where the websocket and HTTP API surfaces bind.
type ListenConfig struct {
	WebsocketAddr string `yaml:"websocket_addr" json:"websocket_addr"`
	HTTPAddr      string `yaml:"http_addr" json:"http_addr"`
}

// DurableConfig is the postgres connection used by internal/store/postgres.
type DurableConfig struct {
	DSN            string        `yaml:"dsn" json:"dsn"`
	MaxConnections int           `yaml:"max_connections" json:"max_connections"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// VolatileConfig is the redis connection used by internal/store/redis.
type VolatileConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// AdaptersConfig configures the boundary adapters (push, presign, TURN).
// cmd/whisperd always wires the no-op pusher, the local presigner and the
// static TURN minter, passing them ObjectStoreBaseURL, PresignTTL and
// TURNURLs; PushVendorKey and TURNRealmSecret are not read by any adapter.
type AdaptersConfig struct {
	ObjectStoreBaseURL string        `yaml:"object_store_base_url" json:"object_store_base_url"`
	PresignTTL         time.Duration `yaml:"presign_ttl" json:"presign_ttl"`
	PushVendorKey      string        `yaml:"push_vendor_key" json:"push_vendor_key"`
	TURNRealmSecret    string        `yaml:"turn_realm_secret" json:"turn_realm_secret"`
	TURNURLs           []string      `yaml:"turn_urls" json:"turn_urls"`
}

// ProtocolConfig holds the protocol timings. setDefaults fills them with
// the same values as the auth, router and mux package constants. No
// component reads these fields: the running server takes its timings from
// those constants, so setting them here does not change behaviour.
type ProtocolConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" json:"heartbeat_interval"`
	ChallengeTTL      time.Duration `yaml:"challenge_ttl" json:"challenge_ttl"`
	SessionTTL        time.Duration `yaml:"session_ttl" json:"session_ttl"`
	PendingTTL        time.Duration `yaml:"pending_ttl" json:"pending_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile reads and parses a YAML config file, applying defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	setDefaults(cfg)
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Listen.WebsocketAddr == "" {
		cfg.Listen.WebsocketAddr = ":8443"
	}
	if cfg.Listen.HTTPAddr == "" {
		cfg.Listen.HTTPAddr = ":8080"
	}
	if cfg.Durable.MaxConnections == 0 {
		cfg.Durable.MaxConnections = 10
	}
	if cfg.Durable.ConnectTimeout == 0 {
		cfg.Durable.ConnectTimeout = 5 * time.Second
	}
	if cfg.Volatile.Addr == "" {
		cfg.Volatile.Addr = "localhost:6379"
	}
	if cfg.Adapters.PresignTTL == 0 {
		cfg.Adapters.PresignTTL = 10 * time.Minute
	}
	if cfg.Protocol.HeartbeatInterval == 0 {
		cfg.Protocol.HeartbeatInterval = 30 * time.Second
	}
	if cfg.Protocol.ChallengeTTL == 0 {
		cfg.Protocol.ChallengeTTL = 60 * time.Second
	}
	if cfg.Protocol.SessionTTL == 0 {
		cfg.Protocol.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Protocol.PendingTTL == 0 {
		cfg.Protocol.PendingTTL = 72 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = "/healthz"
	}
}

// ValidationIssue is one configuration problem found by Validate.
type ValidationIssue struct {
	Field   string
	Message string
}

// Validate checks the fields that must be non-empty for the process to
// actually start serving traffic.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	if cfg.Durable.DSN == "" {
		issues = append(issues, ValidationIssue{Field: "durable.dsn", Message: "is required"})
	}
	if cfg.Volatile.Addr == "" {
		issues = append(issues, ValidationIssue{Field: "volatile.addr", Message: "is required"})
	}
	return issues
}
