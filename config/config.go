// Package config provides configuration management for the minuteman service.
// It supports loading configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/minuteman/pkg/db"
)

// Default configuration values.
const (
	DefaultListenAddress  = ":8000"
	DefaultTimezone       = "Asia/Kolkata"
	DefaultAPIBaseURL     = "https://api.us.nylas.com"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxIterations  = 120
	DefaultPollInterval   = 30 * time.Second
	DefaultFetchTimeout   = 60 * time.Second
	DefaultConfigDir      = ".minuteman"
	DefaultConfigFile     = "config.yaml"
)

// NotetakerConfig holds remote meeting-bot service settings.
type NotetakerConfig struct {
	// BaseURL is the API root of the remote service.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates API calls. Usually supplied via environment or the
	// OS keyring rather than the config file.
	APIKey string `yaml:"api_key,omitempty"`

	// GrantID identifies the calendar grant all operations run against.
	GrantID string `yaml:"grant_id"`

	// RequestTimeout bounds individual API calls.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PollingConfig holds the transcript polling parameters.
type PollingConfig struct {
	// MaxIterations bounds remote state checks per session.
	MaxIterations int `yaml:"max_iterations"`

	// Interval is the delay between checks.
	Interval time.Duration `yaml:"interval"`

	// FetchTimeout bounds the transcript download.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// RedisConfig holds event publishing settings. Disabled by default; the
// service runs fine without a broker.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// JSONFormat switches from console to JSON output.
	JSONFormat bool `yaml:"json_format,omitempty"`

	// Environment tags every log line (development, production).
	Environment string `yaml:"environment,omitempty"`
}

// Config holds the service configuration.
type Config struct {
	// ListenAddress is the HTTP bind address (host:port).
	ListenAddress string `yaml:"listen_address"`

	// Timezone is the wall-clock timezone schedule requests are expressed in.
	Timezone string `yaml:"timezone"`

	Notetaker NotetakerConfig `yaml:"notetaker"`
	Polling   PollingConfig   `yaml:"polling"`
	Database  *db.Config      `yaml:"database,omitempty"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		Timezone:      DefaultTimezone,
		Notetaker: NotetakerConfig{
			BaseURL:        DefaultAPIBaseURL,
			RequestTimeout: DefaultRequestTimeout,
		},
		Polling: PollingConfig{
			MaxIterations: DefaultMaxIterations,
			Interval:      DefaultPollInterval,
			FetchTimeout:  DefaultFetchTimeout,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Environment: "development",
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $MINUTEMAN_CONFIG_DIR if set, otherwise ~/.minuteman
func ConfigDir() (string, error) {
	if dir := os.Getenv("MINUTEMAN_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the service configuration from file and environment.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.minuteman/config.yaml or $MINUTEMAN_CONFIG_DIR/config.yaml)
// 3. Environment variables (MINUTEMAN_*)
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// fileConfig mirrors Config with durations as strings so that YAML files can
// use "30s" style values.
type fileConfig struct {
	ListenAddress string `yaml:"listen_address"`
	Timezone      string `yaml:"timezone"`

	Notetaker struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		GrantID        string `yaml:"grant_id"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"notetaker"`

	Polling struct {
		MaxIterations int    `yaml:"max_iterations"`
		Interval      string `yaml:"interval"`
		FetchTimeout  string `yaml:"fetch_timeout"`
	} `yaml:"polling"`

	Database *db.Config    `yaml:"database"`
	Redis    RedisConfig   `yaml:"redis"`
	Logging  LoggingConfig `yaml:"logging"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if file.ListenAddress != "" {
		cfg.ListenAddress = file.ListenAddress
	}
	if file.Timezone != "" {
		cfg.Timezone = file.Timezone
	}

	if file.Notetaker.BaseURL != "" {
		cfg.Notetaker.BaseURL = file.Notetaker.BaseURL
	}
	if file.Notetaker.APIKey != "" {
		cfg.Notetaker.APIKey = file.Notetaker.APIKey
	}
	if file.Notetaker.GrantID != "" {
		cfg.Notetaker.GrantID = file.Notetaker.GrantID
	}
	if file.Notetaker.RequestTimeout != "" {
		d, err := time.ParseDuration(file.Notetaker.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parsing notetaker.request_timeout: %w", err)
		}
		cfg.Notetaker.RequestTimeout = d
	}

	if file.Polling.MaxIterations > 0 {
		cfg.Polling.MaxIterations = file.Polling.MaxIterations
	}
	if file.Polling.Interval != "" {
		d, err := time.ParseDuration(file.Polling.Interval)
		if err != nil {
			return fmt.Errorf("parsing polling.interval: %w", err)
		}
		cfg.Polling.Interval = d
	}
	if file.Polling.FetchTimeout != "" {
		d, err := time.ParseDuration(file.Polling.FetchTimeout)
		if err != nil {
			return fmt.Errorf("parsing polling.fetch_timeout: %w", err)
		}
		cfg.Polling.FetchTimeout = d
	}

	if file.Database != nil {
		cfg.Database = mergeDatabaseDefaults(file.Database)
	}
	cfg.Redis = file.Redis
	if file.Logging.Level != "" {
		cfg.Logging.Level = file.Logging.Level
	}
	if file.Logging.Environment != "" {
		cfg.Logging.Environment = file.Logging.Environment
	}
	cfg.Logging.JSONFormat = file.Logging.JSONFormat

	return nil
}

// mergeDatabaseDefaults fills in pool settings a database block omitted.
// A file block typically names only the connection fields; the zero values
// for pool sizing and timeouts would otherwise make the pool unusable.
func mergeDatabaseDefaults(file *db.Config) *db.Config {
	merged := db.DefaultConfig()
	if file.Host != "" {
		merged.Host = file.Host
	}
	if file.Port != 0 {
		merged.Port = file.Port
	}
	if file.Database != "" {
		merged.Database = file.Database
	}
	if file.User != "" {
		merged.User = file.User
	}
	if file.Password != "" {
		merged.Password = file.Password
	}
	if file.SSLMode != "" {
		merged.SSLMode = file.SSLMode
	}
	if file.MaxConns > 0 {
		merged.MaxConns = file.MaxConns
	}
	if file.MinConns > 0 {
		merged.MinConns = file.MinConns
	}
	if file.MaxConnLifetime > 0 {
		merged.MaxConnLifetime = file.MaxConnLifetime
	}
	if file.MaxConnIdleTime > 0 {
		merged.MaxConnIdleTime = file.MaxConnIdleTime
	}
	if file.ConnectTimeout > 0 {
		merged.ConnectTimeout = file.ConnectTimeout
	}
	return merged
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("MINUTEMAN_LISTEN_ADDRESS"); v != "" {
		cfg.ListenAddress = v
	}
	if v := os.Getenv("MINUTEMAN_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}

	if v := os.Getenv("MINUTEMAN_API_BASE_URL"); v != "" {
		cfg.Notetaker.BaseURL = v
	}
	if v := os.Getenv("MINUTEMAN_API_KEY"); v != "" {
		cfg.Notetaker.APIKey = v
	}
	if v := os.Getenv("MINUTEMAN_GRANT_ID"); v != "" {
		cfg.Notetaker.GrantID = v
	}
	if v := os.Getenv("MINUTEMAN_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Notetaker.RequestTimeout = d
		}
	}

	if v := os.Getenv("MINUTEMAN_POLL_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Polling.MaxIterations = n
		}
	}
	if v := os.Getenv("MINUTEMAN_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Polling.Interval = d
		}
	}
	if v := os.Getenv("MINUTEMAN_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Polling.FetchTimeout = d
		}
	}

	if v := os.Getenv("MINUTEMAN_REDIS_ENABLED"); v == "true" || v == "1" {
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("MINUTEMAN_REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("MINUTEMAN_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("MINUTEMAN_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("MINUTEMAN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MINUTEMAN_LOG_JSON"); v == "true" || v == "1" {
		cfg.Logging.JSONFormat = true
	}
	if v := os.Getenv("MINUTEMAN_ENVIRONMENT"); v != "" {
		cfg.Logging.Environment = v
	}

	// Database settings come from the DB_* variables when no database block
	// was configured in the file.
	if cfg.Database == nil && os.Getenv("DB_HOST") != "" {
		cfg.Database = db.ConfigFromEnv()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address is required")
	}
	if c.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Notetaker.BaseURL == "" {
		return fmt.Errorf("notetaker.base_url is required")
	}
	if c.Polling.MaxIterations <= 0 {
		return fmt.Errorf("polling.max_iterations must be positive")
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be positive")
	}
	if c.Polling.FetchTimeout <= 0 {
		return fmt.Errorf("polling.fetch_timeout must be positive")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required when redis is enabled")
	}
	return nil
}

// Location resolves the configured timezone. Validate guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *Config) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var file fileConfig
	file.ListenAddress = cfg.ListenAddress
	file.Timezone = cfg.Timezone
	file.Notetaker.BaseURL = cfg.Notetaker.BaseURL
	file.Notetaker.APIKey = cfg.Notetaker.APIKey
	file.Notetaker.GrantID = cfg.Notetaker.GrantID
	file.Notetaker.RequestTimeout = cfg.Notetaker.RequestTimeout.String()
	file.Polling.MaxIterations = cfg.Polling.MaxIterations
	file.Polling.Interval = cfg.Polling.Interval.String()
	file.Polling.FetchTimeout = cfg.Polling.FetchTimeout.String()
	file.Database = cfg.Database
	file.Redis = cfg.Redis
	file.Logging = cfg.Logging

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}
