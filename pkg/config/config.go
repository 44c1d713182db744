// Package config provides layered configuration for the ors-proxy gateway.
//
// Configuration is assembled in increasing precedence:
//  1. Built-in defaults
//  2. An optional YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides
//  4. File reference resolution (_FILE suffix secret indirection)
//  5. Validation
package config

import "time"

// Config holds all configuration for the ors-proxy gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds the RSP-facing HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`            // PORT, default 8080
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // default 30s
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // default 120s
	RequestTimeout time.Duration `yaml:"request_timeout"`  // per-request wall clock, default 600s
	IdleTimeout    time.Duration `yaml:"idle_timeout"`     // upstream idle timeout, default 60s
}

// UpstreamConfig holds the LGC upstream backend settings.
type UpstreamConfig struct {
	URL         string `yaml:"url"`           // UPSTREAM_URL
	APIKey      string `yaml:"api_key"`       // OPENAI_API_KEY
	APIKeyFile  string `yaml:"api_key_file"`  // OPENAI_API_KEY_FILE
	DefaultModel string `yaml:"default_model"` // used when a request omits "model"
}

// StorageConfig selects and configures the context-store backend. The
// backend is always derived from the scheme of DATABASE_URL ("sqlite" or
// "postgres"); there is no separate field to override it.
type StorageConfig struct {
	DatabaseURL string         `yaml:"database_url"` // DATABASE_URL
	Postgres    PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection pool settings used when
// DatabaseURL has the "postgres://" scheme.
type PostgresConfig struct {
	MaxConns       int32         `yaml:"max_conns"`        // default 25
	MinConns       int32         `yaml:"min_conns"`        // default 5
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"` // default 5m
	MigrateOnStart bool          `yaml:"migrate_on_start"` // default true
}

// AuthConfig holds inbound authentication-passthrough settings. The proxy
// never originates credentials; it only validates or forwards what the
// client presents.
type AuthConfig struct {
	Mode       string   `yaml:"mode"`             // ORS_PROXY_AUTH_MODE: none | apikey | jwt
	APIKeys    []string `yaml:"api_keys"`         // ORS_PROXY_API_KEYS (comma-separated)
	JWTSecret  string   `yaml:"jwt_secret"`       // ORS_PROXY_JWT_SECRET
	JWTSecretFile string `yaml:"jwt_secret_file"` // ORS_PROXY_JWT_SECRET_FILE
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel   string `yaml:"log_level"`   // ORS_PROXY_LOG_LEVEL, default "info"
	MetricsAddr string `yaml:"metrics_addr"` // ORS_PROXY_METRICS_ADDR, default ":9090"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   120 * time.Second,
			RequestTimeout: 600 * time.Second,
			IdleTimeout:    60 * time.Second,
		},
		Upstream: UpstreamConfig{
			URL: "http://localhost:11434/v1/chat/completions",
		},
		Storage: StorageConfig{
			DatabaseURL: "sqlite://ors_proxy.db?mode=rwc",
			Postgres: PostgresConfig{
				MaxConns:        25,
				MinConns:        5,
				MaxConnLifetime: 5 * time.Minute,
				MigrateOnStart:  true,
			},
		},
		Auth: AuthConfig{
			Mode: "none",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			MetricsAddr: ":9090",
		},
	}
}
