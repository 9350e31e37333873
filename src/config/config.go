package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"nepse-data-server/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from a YAML file, then applies
// environment overrides (PORT, FORCE_MARKET_OPEN, DATA_PROVIDER, DATA_DIR,
// TICK_INTERVAL_SECONDS). Load a .env file beforehand if you want file-based
// overrides (see cmd/main).
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyEnvOverrides()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyEnvOverrides lets the environment win over the YAML file for the
// handful of settings that change between deployments.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("FORCE_MARKET_OPEN"); v != "" {
		c.Market.ForceOpen = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.Simulation.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("TICK_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Simulation.TickIntervalSeconds = n
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}
	if c.Storage.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be greater than 0")
	}

	// Validate Market schedule
	if c.Market.OpenHour < 0 || c.Market.OpenHour > 23 {
		return fmt.Errorf("invalid market open hour: %d", c.Market.OpenHour)
	}
	if c.Market.CloseHour < 0 || c.Market.CloseHour > 23 {
		return fmt.Errorf("invalid market close hour: %d", c.Market.CloseHour)
	}
	openM := c.Market.OpenHour*60 + c.Market.OpenMinute
	closeM := c.Market.CloseHour*60 + c.Market.CloseMinute
	if openM >= closeM {
		return fmt.Errorf("market open time must be before close time")
	}
	for _, d := range c.Market.TradingDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("invalid trading day %d (must be 0=Sunday .. 6=Saturday)", d)
		}
	}
	for _, h := range c.Market.Holidays {
		if len(strings.TrimSpace(h)) != 5 || h[2] != '-' {
			return fmt.Errorf("invalid holiday '%s' (expected MM-DD)", h)
		}
	}

	// Validate Simulation configuration
	if c.Simulation.Provider == "" {
		return fmt.Errorf("data provider cannot be empty")
	}
	if c.Simulation.TickIntervalSeconds <= 0 {
		return fmt.Errorf("tick interval must be greater than 0")
	}
	if c.Simulation.TicksPerDay < 2 {
		return fmt.Errorf("ticks per day must be at least 2")
	}
	if c.Simulation.ReplayWindowDays <= 0 {
		return fmt.Errorf("replay window days must be greater than 0")
	}
	if c.Simulation.HistoryLookbackDays < c.Simulation.ReplayWindowDays {
		return fmt.Errorf("history lookback (%d) must cover the replay window (%d)",
			c.Simulation.HistoryLookbackDays, c.Simulation.ReplayWindowDays)
	}

	// Validate Data configuration
	if c.Data.Dir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("at least one tracked symbol must be configured")
	}

	// Validate Alert defaults
	if c.Alerts.PriceThresholdPct <= 0 {
		return fmt.Errorf("price threshold must be greater than 0")
	}
	if c.Alerts.VolumeThresholdMultiplier <= 0 {
		return fmt.Errorf("volume threshold multiplier must be greater than 0")
	}
	if c.Alerts.CooldownSeconds < 0 {
		return fmt.Errorf("alert cooldown cannot be negative")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
