package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/minuteman/config"
)

// configCmd manages service configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage service configuration",
	Long:  `View and modify the minuteman configuration settings.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		configPath, _ := config.ConfigPath()

		fmt.Println("Current configuration:")
		fmt.Printf("  Config file:     %s\n", configPath)
		fmt.Printf("  Listen address:  %s\n", cfg.ListenAddress)
		fmt.Printf("  Timezone:        %s\n", cfg.Timezone)
		fmt.Printf("  API base URL:    %s\n", cfg.Notetaker.BaseURL)
		fmt.Printf("  Grant ID:        %s\n", valueOrDefault(cfg.Notetaker.GrantID, "(not set)"))
		fmt.Printf("  Request timeout: %s\n", cfg.Notetaker.RequestTimeout)
		fmt.Printf("  Poll iterations: %d\n", cfg.Polling.MaxIterations)
		fmt.Printf("  Poll interval:   %s\n", cfg.Polling.Interval)
		fmt.Printf("  Fetch timeout:   %s\n", cfg.Polling.FetchTimeout)
		fmt.Printf("  Redis events:    %t\n", cfg.Redis.Enabled)
		fmt.Printf("  Database:        %s\n", databaseSummary(cfg))
		fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Configuration file already exists: %s\n", configPath)
			fmt.Println("Use 'minuteman config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Created configuration file: %s\n", configPath)
		fmt.Println("\nDefault settings:")
		fmt.Printf("  Listen address: %s\n", defaultCfg.ListenAddress)
		fmt.Printf("  Timezone:       %s\n", defaultCfg.Timezone)
		fmt.Printf("  API base URL:   %s\n", defaultCfg.Notetaker.BaseURL)

		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  listen_address   - HTTP listen address (e.g., :8000)
  timezone         - IANA timezone for schedule requests
  base_url         - Nylas API base URL
  grant_id         - Calendar grant ID
  request_timeout  - Remote API request timeout (e.g., 30s)
  poll_interval    - Delay between polling iterations (e.g., 30s)
  poll_iterations  - Maximum polling iterations per session
  fetch_timeout    - Transcript download timeout (e.g., 60s)
  log_level        - Log level (debug, info, warn, error)

Examples:
  minuteman config set listen_address :9000
  minuteman config set timezone Europe/London
  minuteman config set poll_interval 15s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		currentCfg, err := config.LoadConfig()
		if err != nil {
			currentCfg = config.DefaultConfig()
		}

		if err := applyConfigValue(currentCfg, key, value); err != nil {
			return err
		}

		if err := currentCfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

// applyConfigValue mutates cfg according to a config set key/value pair.
func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "listen_address":
		cfg.ListenAddress = value
	case "timezone":
		cfg.Timezone = value
	case "base_url":
		cfg.Notetaker.BaseURL = value
	case "grant_id":
		cfg.Notetaker.GrantID = value
	case "request_timeout":
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid request_timeout value: %w", err)
		}
		cfg.Notetaker.RequestTimeout = duration
	case "poll_interval":
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid poll_interval value: %w", err)
		}
		cfg.Polling.Interval = duration
	case "poll_iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid poll_iterations value: %w", err)
		}
		cfg.Polling.MaxIterations = n
	case "fetch_timeout":
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid fetch_timeout value: %w", err)
		}
		cfg.Polling.FetchTimeout = duration
	case "log_level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// databaseSummary describes the recordings backend for config show.
func databaseSummary(cfg *config.Config) string {
	if cfg.Database == nil {
		return "(in-memory)"
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
}
