package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"wmac/internal/utils"
)

// Config is the engine configuration surface. It is read once at
// engine construction and at session setup; the core never mutates it.
type Config struct {
	Aggregation struct {
		MaxFrames    int    `yaml:"max_frames" env:"WMAC_AGG_MAX_FRAMES"`
		MaxBytes     int    `yaml:"max_bytes" env:"WMAC_AGG_MAX_BYTES"`
		FlushTimeout string `yaml:"flush_timeout" env:"WMAC_AGG_FLUSH_TIMEOUT"`
		TimerPeriod  string `yaml:"timer_period" env:"WMAC_AGG_TIMER_PERIOD"`
	} `yaml:"aggregation"`

	Reorder struct {
		WindowSize  int    `yaml:"window_size" env:"WMAC_REORDER_WINDOW_SIZE"`
		Timeout     string `yaml:"timeout" env:"WMAC_REORDER_TIMEOUT"`
		TimerPeriod string `yaml:"timer_period" env:"WMAC_REORDER_TIMER_PERIOD"`
	} `yaml:"reorder"`

	Session struct {
		MaxWindow int    `yaml:"max_window" env:"WMAC_SESSION_MAX_WINDOW"`
		Timeout   string `yaml:"timeout" env:"WMAC_SESSION_TIMEOUT"`
	} `yaml:"session"`

	Logging struct {
		Level string `yaml:"level" env:"WMAC_LOG_LEVEL"`
	} `yaml:"logging"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	config := &Config{}

	config.Aggregation.MaxFrames = utils.DefaultMaxAggFrames
	config.Aggregation.MaxBytes = utils.DefaultMaxAggBytes
	config.Aggregation.FlushTimeout = utils.DefaultAggFlushTimeout.String()
	config.Aggregation.TimerPeriod = utils.DefaultAggTimerPeriod.String()

	config.Reorder.WindowSize = utils.DefaultBAWindow
	config.Reorder.Timeout = utils.DefaultReorderTimeout.String()
	config.Reorder.TimerPeriod = utils.DefaultReorderTimerPeriod.String()

	config.Session.MaxWindow = utils.MaxBAWindow
	config.Session.Timeout = utils.DefaultSessionTimeout.String()

	config.Logging.Level = "info"

	return config
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Load from file if provided
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *Config) {
	if v := os.Getenv("WMAC_AGG_MAX_FRAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Aggregation.MaxFrames = n
		}
	}
	if v := os.Getenv("WMAC_AGG_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Aggregation.MaxBytes = n
		}
	}
	if v := os.Getenv("WMAC_AGG_FLUSH_TIMEOUT"); v != "" {
		config.Aggregation.FlushTimeout = v
	}
	if v := os.Getenv("WMAC_AGG_TIMER_PERIOD"); v != "" {
		config.Aggregation.TimerPeriod = v
	}
	if v := os.Getenv("WMAC_REORDER_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Reorder.WindowSize = n
		}
	}
	if v := os.Getenv("WMAC_REORDER_TIMEOUT"); v != "" {
		config.Reorder.Timeout = v
	}
	if v := os.Getenv("WMAC_REORDER_TIMER_PERIOD"); v != "" {
		config.Reorder.TimerPeriod = v
	}
	if v := os.Getenv("WMAC_SESSION_MAX_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Session.MaxWindow = n
		}
	}
	if v := os.Getenv("WMAC_SESSION_TIMEOUT"); v != "" {
		config.Session.Timeout = v
	}
	if v := os.Getenv("WMAC_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
// Every duration must parse AND be positive: these values feed
// time.NewTicker, which panics on a non-positive interval, inside timer
// goroutines where nothing can recover.
func (c *Config) Validate() error {
	if c.Aggregation.MaxFrames <= 0 {
		return utils.NewConfigurationInvalidError("aggregation.max_frames", c.Aggregation.MaxFrames)
	}
	if c.Aggregation.MaxBytes <= 0 {
		return utils.NewConfigurationInvalidError("aggregation.max_bytes", c.Aggregation.MaxBytes)
	}
	if d, err := time.ParseDuration(c.Aggregation.FlushTimeout); err != nil || d <= 0 {
		return utils.NewConfigurationInvalidError("aggregation.flush_timeout", c.Aggregation.FlushTimeout)
	}
	if d, err := time.ParseDuration(c.Aggregation.TimerPeriod); err != nil || d <= 0 {
		return utils.NewConfigurationInvalidError("aggregation.timer_period", c.Aggregation.TimerPeriod)
	}

	if c.Reorder.WindowSize <= 0 || c.Reorder.WindowSize > utils.MaxBAWindow {
		return utils.NewConfigurationInvalidError("reorder.window_size", c.Reorder.WindowSize)
	}
	if d, err := time.ParseDuration(c.Reorder.Timeout); err != nil || d <= 0 {
		return utils.NewConfigurationInvalidError("reorder.timeout", c.Reorder.Timeout)
	}
	if d, err := time.ParseDuration(c.Reorder.TimerPeriod); err != nil || d <= 0 {
		return utils.NewConfigurationInvalidError("reorder.timer_period", c.Reorder.TimerPeriod)
	}

	if c.Session.MaxWindow <= 0 || c.Session.MaxWindow > utils.MaxBAWindow {
		return utils.NewConfigurationInvalidError("session.max_window", c.Session.MaxWindow)
	}
	// The sweep period is timeout / SessionSweepDivisor; it must stay
	// positive after the division too.
	if d, err := time.ParseDuration(c.Session.Timeout); err != nil || d/utils.SessionSweepDivisor <= 0 {
		return utils.NewConfigurationInvalidError("session.timeout", c.Session.Timeout)
	}

	validLogLevels := map[string]bool{
		"silent": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return utils.NewConfigurationInvalidError("logging.level", c.Logging.Level)
	}

	return nil
}

// GetAggFlushTimeout returns the parsed aggregation flush timeout
func (c *Config) GetAggFlushTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Aggregation.FlushTimeout)
	return d
}

// GetAggTimerPeriod returns the parsed aggregation timer period
func (c *Config) GetAggTimerPeriod() time.Duration {
	d, _ := time.ParseDuration(c.Aggregation.TimerPeriod)
	return d
}

// GetReorderTimeout returns the parsed reorder timeout
func (c *Config) GetReorderTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Reorder.Timeout)
	return d
}

// GetReorderTimerPeriod returns the parsed reorder timer period
func (c *Config) GetReorderTimerPeriod() time.Duration {
	d, _ := time.ParseDuration(c.Reorder.TimerPeriod)
	return d
}

// GetSessionTimeout returns the parsed session idle timeout
func (c *Config) GetSessionTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Session.Timeout)
	return d
}

// SaveToFile saves the current configuration to a YAML file
func (c *Config) SaveToFile(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
