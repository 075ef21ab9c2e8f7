// ABOUTME: Configuration loading and parsing for adledger
// ABOUTME: Supports YAML or TOML files, ${VAR} expansion, ADLEDGER_* overrides and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// MinJWTSecretLength matches the minimum accepted by the token verifier.
const MinJWTSecretLength = 32

// Defaults applied when a field is left empty.
const (
	DefaultHTTPAddr        = "localhost:8080"
	DefaultGRPCAddr        = "localhost:50051"
	DefaultTokenTTL        = 30 * 24 * time.Hour
	DefaultEventBufferSize = 64
)

// Config represents the complete adledger configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Exchange ExchangeConfig `yaml:"exchange" toml:"exchange"`
	Events   EventsConfig   `yaml:"events" toml:"events"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"ADLEDGER_HTTP_ADDR"`
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr" env:"ADLEDGER_GRPC_ADDR"` // gRPC health service

	// WriteRate limits mutating requests per caller, in requests per second.
	// Zero disables limiting.
	WriteRate  float64 `yaml:"write_rate" toml:"write_rate" env:"ADLEDGER_WRITE_RATE"`
	WriteBurst int     `yaml:"write_burst" toml:"write_burst" env:"ADLEDGER_WRITE_BURST"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" env:"ADLEDGER_DB_PATH"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret" env:"ADLEDGER_JWT_SECRET"`
	// Owner seeds the access gate on first start
	Owner string `yaml:"owner" toml:"owner" env:"ADLEDGER_OWNER"`

	TokenTTL    time.Duration `yaml:"-" toml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl" toml:"token_ttl" env:"ADLEDGER_TOKEN_TTL"`
}

// ExchangeConfig holds exchange behavior switches
type ExchangeConfig struct {
	// RetainSettledHitFields keeps a hit's descriptive fields when it is
	// settled instead of clearing them
	RetainSettledHitFields bool `yaml:"retain_settled_hit_fields" toml:"retain_settled_hit_fields" env:"ADLEDGER_RETAIN_SETTLED_HIT_FIELDS"`
}

// EventsConfig holds event delivery configuration
type EventsConfig struct {
	BufferSize int `yaml:"buffer_size" toml:"buffer_size" env:"ADLEDGER_EVENT_BUFFER_SIZE"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"ADLEDGER_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"ADLEDGER_LOG_FORMAT"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then any
// ADLEDGER_* variable that is set overrides the matching file value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = DefaultGRPCAddr
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}
	if c.Events.BufferSize == 0 {
		c.Events.BufferSize = DefaultEventBufferSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}

	if c.Auth.Owner == "" {
		return errors.New("auth.owner is required")
	}

	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}

	if c.Auth.TokenTTL < 0 {
		return errors.New("auth.token_ttl must be positive")
	}

	if c.Server.WriteRate < 0 {
		return errors.New("server.write_rate must not be negative")
	}

	if c.Server.WriteRate > 0 && c.Server.WriteBurst < 1 {
		return errors.New("server.write_burst must be at least 1 when write_rate is set")
	}

	if c.Events.BufferSize < 0 {
		return errors.New("events.buffer_size must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Auth.TokenTTLRaw != "" {
		ttl, err := time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
		cfg.Auth.TokenTTL = ttl
	}
	return nil
}
