// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when none is given on the command line.
const DefaultPath = "community_publisher_config.yaml"

// MaxDomainID is the highest distribution domain id accepted.
const MaxDomainID = 232

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Config is the root configuration structure.
type Config struct {
	Gateway      GatewayConfig      `yaml:"gateway"`
	Server       ServerConfig       `yaml:"server"`
	Distribution DistributionConfig `yaml:"distribution"`
	Security     SecurityConfig     `yaml:"security"`
	Data         DataConfig         `yaml:"data"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	OpenAPI      OpenAPIConfig      `yaml:"openapi"`
}

// GatewayConfig identifies this gateway instance.
type GatewayConfig struct {
	SourceID         string `yaml:"source_id"` // stamped on every published record
	StrictValidation bool   `yaml:"strict_validation"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	AuthToken       string        `yaml:"auth_token"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DistributionConfig configures the channels records are published to.
// Driver is "nats", "sqlite" or "memory".
type DistributionConfig struct {
	Driver      string       `yaml:"driver"`
	DomainID    int          `yaml:"domain_id"`
	TopicPrefix string       `yaml:"topic_prefix"`
	Codec       string       `yaml:"codec"` // "json" or "cbor"
	NATS        NATSConfig   `yaml:"nats"`
	SQLite      SQLiteConfig `yaml:"sqlite"`
}

// NATSConfig configures the NATS driver.
type NATSConfig struct {
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	Timeout       time.Duration `yaml:"timeout"`
	JetStream     bool          `yaml:"jetstream"`
	Stream        string        `yaml:"stream"`
	Username      string        `yaml:"username,omitempty"`
	Password      string        `yaml:"password,omitempty"`
	Token         string        `yaml:"token,omitempty"`
}

// SQLiteConfig configures the sqlite spool driver.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SecurityConfig holds the identity material used by the distribution layer.
type SecurityConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IdentityCA    string `yaml:"identity_ca"`
	IdentityCert  string `yaml:"identity_cert"`
	IdentityKey   string `yaml:"identity_key"`
	PermissionsCA string `yaml:"permissions_ca"`
	Permissions   string `yaml:"permissions"`
	Governance    string `yaml:"governance"`
}

// DataConfig configures data retention and liveness.
type DataConfig struct {
	PurgeTimeout      time.Duration `yaml:"purge_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level   string        `yaml:"level"`  // DEBUG, INFO, WARN, ERROR, FATAL
	Format  string        `yaml:"format"` // "json" or "console"
	Console bool          `yaml:"console"`
	File    FileLogConfig `yaml:"file"`
	Syslog  SyslogConfig  `yaml:"syslog"`
}

// FileLogConfig configures the append-only log file target.
type FileLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SyslogConfig configures the syslog target.
type SyslogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{Logging: LoggingConfig{Console: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	HSDSGATE_SOURCE_ID           - Gateway identity (default: community-publisher-default)
//	HSDSGATE_STRICT_VALIDATION   - Enable strict reference rules
//	HSDSGATE_SERVER_HOST         - Listen host (default: 0.0.0.0)
//	HSDSGATE_SERVER_PORT         - Listen port (default: 8080)
//	HSDSGATE_AUTH_TOKEN          - Bearer token for /api/v1/hsds
//	HSDSGATE_DRIVER              - nats, sqlite or memory (default: nats)
//	HSDSGATE_DOMAIN_ID           - Distribution domain id, 0-232
//	HSDSGATE_CODEC               - json or cbor (default: json)
//	HSDSGATE_NATS_URL            - NATS server URL
//	HSDSGATE_SQLITE_PATH         - Spool database path
//	HSDSGATE_LOG_LEVEL           - DEBUG, INFO, WARN, ERROR, FATAL
//	HSDSGATE_LOG_FORMAT          - json or console
//	HSDSGATE_METRICS_ENABLED     - Enable /metrics endpoint
//	HSDSGATE_OPENAPI_ENABLED     - Enable /swagger
func LoadFromEnv() (*Config, error) {
	cfg := Config{Logging: LoggingConfig{Console: true}}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set HSDSGATE_AUTH_TOKEN")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("HSDSGATE_AUTH_TOKEN") != ""
}

// applyEnvOverrides applies HSDSGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HSDSGATE_SOURCE_ID"); v != "" {
		cfg.Gateway.SourceID = v
	}
	if v := os.Getenv("HSDSGATE_STRICT_VALIDATION"); v != "" {
		cfg.Gateway.StrictValidation = parseBool(v)
	}

	// Server configuration
	if v := os.Getenv("HSDSGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HSDSGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HSDSGATE_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := os.Getenv("HSDSGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("HSDSGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Distribution configuration
	if v := os.Getenv("HSDSGATE_DRIVER"); v != "" {
		cfg.Distribution.Driver = v
	}
	if v := os.Getenv("HSDSGATE_DOMAIN_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Distribution.DomainID = n
		}
	}
	if v := os.Getenv("HSDSGATE_CODEC"); v != "" {
		cfg.Distribution.Codec = v
	}
	if v := os.Getenv("HSDSGATE_NATS_URL"); v != "" {
		cfg.Distribution.NATS.URL = v
	}
	if v := os.Getenv("HSDSGATE_NATS_JETSTREAM"); v != "" {
		cfg.Distribution.NATS.JetStream = parseBool(v)
	}
	if v := os.Getenv("HSDSGATE_SQLITE_PATH"); v != "" {
		cfg.Distribution.SQLite.Path = v
	}

	// Security configuration
	if v := os.Getenv("HSDSGATE_SECURITY_ENABLED"); v != "" {
		cfg.Security.Enabled = parseBool(v)
	}

	// Logging configuration
	if v := os.Getenv("HSDSGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HSDSGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("HSDSGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("HSDSGATE_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Gateway.SourceID == "" {
		cfg.Gateway.SourceID = "community-publisher-default"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AuthToken == "" {
		cfg.Server.AuthToken = "secure_token_change_me"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	if cfg.Distribution.Driver == "" {
		cfg.Distribution.Driver = "nats"
	}
	if cfg.Distribution.TopicPrefix == "" {
		cfg.Distribution.TopicPrefix = "hsds"
	}
	if cfg.Distribution.Codec == "" {
		cfg.Distribution.Codec = "json"
	}
	if cfg.Distribution.NATS.URL == "" {
		cfg.Distribution.NATS.URL = "nats://relay.community.org:4444"
	}
	if cfg.Distribution.NATS.Name == "" {
		cfg.Distribution.NATS.Name = "hsdsgate"
	}
	if cfg.Distribution.NATS.MaxReconnects == 0 {
		cfg.Distribution.NATS.MaxReconnects = -1
	}
	if cfg.Distribution.NATS.ReconnectWait == 0 {
		cfg.Distribution.NATS.ReconnectWait = 2 * time.Second
	}
	if cfg.Distribution.NATS.Timeout == 0 {
		cfg.Distribution.NATS.Timeout = 5 * time.Second
	}
	if cfg.Distribution.NATS.Stream == "" {
		cfg.Distribution.NATS.Stream = "HSDS"
	}
	if cfg.Distribution.SQLite.Path == "" {
		cfg.Distribution.SQLite.Path = "hsdsgate-spool.db"
	}

	if cfg.Security.IdentityCA == "" {
		cfg.Security.IdentityCA = "/etc/community/certs/identity_ca.pem"
	}
	if cfg.Security.IdentityCert == "" {
		cfg.Security.IdentityCert = "/etc/community/certs/identity_cert.pem"
	}
	if cfg.Security.IdentityKey == "" {
		cfg.Security.IdentityKey = "/etc/community/certs/identity_key.pem"
	}
	if cfg.Security.PermissionsCA == "" {
		cfg.Security.PermissionsCA = "/etc/community/certs/permissions_ca.pem"
	}
	if cfg.Security.Permissions == "" {
		cfg.Security.Permissions = "/etc/community/certs/permissions.xml"
	}
	if cfg.Security.Governance == "" {
		cfg.Security.Governance = "/etc/community/certs/governance.xml"
	}

	if cfg.Data.PurgeTimeout == 0 {
		cfg.Data.PurgeTimeout = time.Hour
	}
	if cfg.Data.HeartbeatInterval == 0 {
		cfg.Data.HeartbeatInterval = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.File.Path == "" {
		cfg.Logging.File.Path = "/var/log/community/publisher.log"
	}
	if cfg.Logging.Syslog.Address == "" {
		cfg.Logging.Syslog.Address = "localhost:514"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if !identityPattern.MatchString(cfg.Gateway.SourceID) || len(cfg.Gateway.SourceID) > 100 {
		return fmt.Errorf("gateway.source_id %q must be 1-100 characters of [A-Za-z0-9_.-]", cfg.Gateway.SourceID)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative")
	}

	validDrivers := map[string]bool{"nats": true, "sqlite": true, "memory": true}
	if !validDrivers[cfg.Distribution.Driver] {
		return fmt.Errorf("distribution.driver must be 'nats', 'sqlite' or 'memory', got %q", cfg.Distribution.Driver)
	}
	if cfg.Distribution.DomainID < 0 || cfg.Distribution.DomainID > MaxDomainID {
		return fmt.Errorf("distribution.domain_id must be between 0 and %d, got %d", MaxDomainID, cfg.Distribution.DomainID)
	}
	validCodecs := map[string]bool{"json": true, "cbor": true}
	if !validCodecs[cfg.Distribution.Codec] {
		return fmt.Errorf("distribution.codec must be 'json' or 'cbor', got %q", cfg.Distribution.Codec)
	}

	if cfg.Security.Enabled {
		paths := []struct{ key, value string }{
			{"security.identity_ca", cfg.Security.IdentityCA},
			{"security.identity_cert", cfg.Security.IdentityCert},
			{"security.identity_key", cfg.Security.IdentityKey},
			{"security.permissions_ca", cfg.Security.PermissionsCA},
			{"security.permissions", cfg.Security.Permissions},
			{"security.governance", cfg.Security.Governance},
		}
		for _, p := range paths {
			if strings.TrimSpace(p.value) == "" {
				return fmt.Errorf("%s is required when security is enabled", p.key)
			}
		}
	}

	if cfg.Data.PurgeTimeout < 0 {
		return fmt.Errorf("data.purge_timeout must not be negative")
	}
	if cfg.Data.HeartbeatInterval < time.Second {
		return fmt.Errorf("data.heartbeat_interval must be at least 1s, got %s", cfg.Data.HeartbeatInterval)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "fatal": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: DEBUG, INFO, WARN, ERROR, FATAL")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
