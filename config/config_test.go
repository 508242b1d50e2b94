// Package config provides configuration management for the minuteman service.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %v, want %v", cfg.ListenAddress, DefaultListenAddress)
	}
	if cfg.Timezone != DefaultTimezone {
		t.Errorf("Timezone = %v, want %v", cfg.Timezone, DefaultTimezone)
	}
	if cfg.Notetaker.BaseURL != DefaultAPIBaseURL {
		t.Errorf("Notetaker.BaseURL = %v, want %v", cfg.Notetaker.BaseURL, DefaultAPIBaseURL)
	}
	if cfg.Polling.MaxIterations != DefaultMaxIterations {
		t.Errorf("Polling.MaxIterations = %v, want %v", cfg.Polling.MaxIterations, DefaultMaxIterations)
	}
	if cfg.Polling.Interval != DefaultPollInterval {
		t.Errorf("Polling.Interval = %v, want %v", cfg.Polling.Interval, DefaultPollInterval)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis should be disabled by default")
	}
	if cfg.Database != nil {
		t.Error("Database should be unset by default")
	}
}

// TestDefaultConstants verifies default constant values.
func TestDefaultConstants(t *testing.T) {
	if DefaultListenAddress != ":8000" {
		t.Errorf("DefaultListenAddress = %v, want :8000", DefaultListenAddress)
	}
	if DefaultMaxIterations != 120 {
		t.Errorf("DefaultMaxIterations = %v, want 120", DefaultMaxIterations)
	}
	if DefaultPollInterval != 30*time.Second {
		t.Errorf("DefaultPollInterval = %v, want 30s", DefaultPollInterval)
	}
	if DefaultFetchTimeout != 60*time.Second {
		t.Errorf("DefaultFetchTimeout = %v, want 60s", DefaultFetchTimeout)
	}
	if DefaultConfigDir != ".minuteman" {
		t.Errorf("DefaultConfigDir = %v, want .minuteman", DefaultConfigDir)
	}
	if DefaultConfigFile != "config.yaml" {
		t.Errorf("DefaultConfigFile = %v, want config.yaml", DefaultConfigFile)
	}
}

// TestValidate verifies configuration validation.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"missing listen address", func(c *Config) { c.ListenAddress = "" }, true},
		{"missing timezone", func(c *Config) { c.Timezone = "" }, true},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"missing base url", func(c *Config) { c.Notetaker.BaseURL = "" }, true},
		{"zero iterations", func(c *Config) { c.Polling.MaxIterations = 0 }, true},
		{"zero interval", func(c *Config) { c.Polling.Interval = 0 }, true},
		{"zero fetch timeout", func(c *Config) { c.Polling.FetchTimeout = 0 }, true},
		{"redis enabled without host", func(c *Config) { c.Redis.Enabled = true }, true},
		{"redis enabled with host", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Host = "localhost"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfigFromFile verifies YAML file loading with duration strings.
func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MINUTEMAN_CONFIG_DIR", dir)

	content := []byte(`listen_address: ":9000"
timezone: "UTC"
notetaker:
  base_url: "https://api.eu.nylas.com"
  grant_id: "grant-abc"
  request_timeout: "15s"
polling:
  max_iterations: 10
  interval: "5s"
  fetch_timeout: "20s"
logging:
  level: "debug"
  json_format: true
`)
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), content, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ListenAddress != ":9000" {
		t.Errorf("ListenAddress = %v, want :9000", cfg.ListenAddress)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %v, want UTC", cfg.Timezone)
	}
	if cfg.Notetaker.GrantID != "grant-abc" {
		t.Errorf("GrantID = %v, want grant-abc", cfg.Notetaker.GrantID)
	}
	if cfg.Notetaker.RequestTimeout != 15*time.Second {
		t.Errorf("RequestTimeout = %v, want 15s", cfg.Notetaker.RequestTimeout)
	}
	if cfg.Polling.MaxIterations != 10 {
		t.Errorf("MaxIterations = %v, want 10", cfg.Polling.MaxIterations)
	}
	if cfg.Polling.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Polling.Interval)
	}
	if !cfg.Logging.JSONFormat {
		t.Error("Logging.JSONFormat should be true")
	}
}

// TestLoadConfigMinimalDatabaseBlock verifies a database block naming only
// connection fields still produces a usable pool configuration.
func TestLoadConfigMinimalDatabaseBlock(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MINUTEMAN_CONFIG_DIR", dir)

	content := []byte(`database:
  host: "db.internal"
  port: 5433
  database: "minuteman"
  user: "svc"
`)
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), content, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Database == nil {
		t.Fatal("Database should be set")
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Host = %v, want db.internal", cfg.Database.Host)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("Port = %v, want 5433", cfg.Database.Port)
	}
	if cfg.Database.MaxConns != 10 {
		t.Errorf("MaxConns = %v, want 10", cfg.Database.MaxConns)
	}
	if cfg.Database.MinConns != 2 {
		t.Errorf("MinConns = %v, want 2", cfg.Database.MinConns)
	}
	if cfg.Database.MaxConnLifetime != time.Hour {
		t.Errorf("MaxConnLifetime = %v, want 1h", cfg.Database.MaxConnLifetime)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Errorf("SSLMode = %v, want disable", cfg.Database.SSLMode)
	}
	if err := cfg.Database.Validate(); err != nil {
		t.Errorf("Database.Validate() error = %v", err)
	}
}

// TestLoadConfigEnvOverrides verifies environment variables beat file values.
func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MINUTEMAN_CONFIG_DIR", dir)
	t.Setenv("MINUTEMAN_LISTEN_ADDRESS", ":7070")
	t.Setenv("MINUTEMAN_API_KEY", "nyk_test")
	t.Setenv("MINUTEMAN_GRANT_ID", "grant-env")
	t.Setenv("MINUTEMAN_POLL_MAX_ITERATIONS", "3")
	t.Setenv("MINUTEMAN_POLL_INTERVAL", "1s")
	t.Setenv("MINUTEMAN_TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ListenAddress != ":7070" {
		t.Errorf("ListenAddress = %v, want :7070", cfg.ListenAddress)
	}
	if cfg.Notetaker.APIKey != "nyk_test" {
		t.Errorf("APIKey = %v, want nyk_test", cfg.Notetaker.APIKey)
	}
	if cfg.Notetaker.GrantID != "grant-env" {
		t.Errorf("GrantID = %v, want grant-env", cfg.Notetaker.GrantID)
	}
	if cfg.Polling.MaxIterations != 3 {
		t.Errorf("MaxIterations = %v, want 3", cfg.Polling.MaxIterations)
	}
	if cfg.Polling.Interval != time.Second {
		t.Errorf("Interval = %v, want 1s", cfg.Polling.Interval)
	}
}

// TestSaveConfigRoundTrip verifies save then load preserves values.
func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MINUTEMAN_CONFIG_DIR", dir)

	cfg := DefaultConfig()
	cfg.ListenAddress = ":9001"
	cfg.Notetaker.GrantID = "grant-rt"
	cfg.Polling.Interval = 10 * time.Second

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if loaded.ListenAddress != ":9001" {
		t.Errorf("ListenAddress = %v, want :9001", loaded.ListenAddress)
	}
	if loaded.Notetaker.GrantID != "grant-rt" {
		t.Errorf("GrantID = %v, want grant-rt", loaded.Notetaker.GrantID)
	}
	if loaded.Polling.Interval != 10*time.Second {
		t.Errorf("Interval = %v, want 10s", loaded.Polling.Interval)
	}
}

// TestLocation verifies timezone resolution.
func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}
