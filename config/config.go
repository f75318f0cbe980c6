package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Feed    FeedConfig    `json:"feed" yaml:"feed"`
	Sim     SimConfig     `json:"sim" yaml:"sim"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// FeedConfig configures the streaming feed connection.
type FeedConfig struct {
	Endpoint         string `json:"endpoint" yaml:"endpoint"`
	ControlBase      string `json:"controlBase" yaml:"controlBase"`
	ReconnectDelay   string `json:"reconnectDelay" yaml:"reconnectDelay"`     // Duration string
	MaxAttempts      int    `json:"maxAttempts" yaml:"maxAttempts"`
	HandshakeTimeout string `json:"handshakeTimeout" yaml:"handshakeTimeout"` // Duration string
	PollInterval     string `json:"pollInterval" yaml:"pollInterval"`         // Alert polling, "" disables
}

// SimConfig configures the simulated backend.
type SimConfig struct {
	Address         string `json:"address" yaml:"address"`
	SampleInterval  string `json:"sampleInterval" yaml:"sampleInterval"` // Duration string
	TriggerDuration string `json:"triggerDuration" yaml:"triggerDuration"`
	TriggerRate     float64 `json:"triggerRate" yaml:"triggerRate"` // triggers per second
	TriggerBurst    int     `json:"triggerBurst" yaml:"triggerBurst"`
	Seed            int64   `json:"seed" yaml:"seed"`
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"` // debug, info, warn, error
	Directory   string `json:"directory" yaml:"directory"`
	LogToFile   bool   `json:"logToFile" yaml:"logToFile"`
	LogToStdout bool   `json:"logToStdout" yaml:"logToStdout"`
	MaxSize     int    `json:"maxSize" yaml:"maxSize"` // megabytes
	MaxAge      int    `json:"maxAge" yaml:"maxAge"`   // days
	MaxBackups  int    `json:"maxBackups" yaml:"maxBackups"`
	Compress    bool   `json:"compress" yaml:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address" yaml:"address"`
	Path    string `json:"path" yaml:"path"`
}

// Load reads and parses the configuration file. JSON and YAML are
// supported, selected by file extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Set defaults for the feed
	if config.Feed.ReconnectDelay == "" {
		config.Feed.ReconnectDelay = "2s"
	}
	if config.Feed.MaxAttempts <= 0 {
		config.Feed.MaxAttempts = 10
	}
	if config.Feed.HandshakeTimeout == "" {
		config.Feed.HandshakeTimeout = "10s"
	}

	// Set defaults for the sim backend
	if config.Sim.Address == "" {
		config.Sim.Address = ":8000"
	}
	if config.Sim.SampleInterval == "" {
		config.Sim.SampleInterval = "50ms"
	}
	if config.Sim.TriggerDuration == "" {
		config.Sim.TriggerDuration = "60s"
	}
	if config.Sim.TriggerRate <= 0 {
		config.Sim.TriggerRate = 1
	}
	if config.Sim.TriggerBurst <= 0 {
		config.Sim.TriggerBurst = 3
	}

	// Set defaults for logging
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if !config.Logging.LogToFile && !config.Logging.LogToStdout {
		config.Logging.LogToStdout = true
	}
	if config.Logging.MaxSize <= 0 {
		config.Logging.MaxSize = 100
	}
	if config.Logging.MaxAge <= 0 {
		config.Logging.MaxAge = 28
	}
	if config.Logging.MaxBackups <= 0 {
		config.Logging.MaxBackups = 3
	}

	// Set defaults for metrics
	if config.Metrics.Address == "" {
		config.Metrics.Address = ":2112"
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}

	// Validate the configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig performs validation of all configuration values
func validateConfig(cfg *Config) error {
	if cfg.Feed.Endpoint == "" {
		return fmt.Errorf("feed endpoint is required")
	}
	for name, value := range map[string]string{
		"feed.reconnectDelay":   cfg.Feed.ReconnectDelay,
		"feed.handshakeTimeout": cfg.Feed.HandshakeTimeout,
		"sim.sampleInterval":    cfg.Sim.SampleInterval,
		"sim.triggerDuration":   cfg.Sim.TriggerDuration,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if cfg.Feed.PollInterval != "" {
		if _, err := time.ParseDuration(cfg.Feed.PollInterval); err != nil {
			return fmt.Errorf("invalid feed.pollInterval: %w", err)
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	if cfg.Logging.LogToFile && cfg.Logging.Directory == "" {
		return fmt.Errorf("logging directory is required when logging to file")
	}

	return nil
}

// ApplyOverrides applies command line flag overrides to the configuration
func (c *Config) ApplyOverrides(endpoint, controlBase, metricsAddr, metricsPath string) {
	if endpoint != "" {
		c.Feed.Endpoint = endpoint
	}
	if controlBase != "" {
		c.Feed.ControlBase = controlBase
	}
	if metricsAddr != "" {
		c.Metrics.Address = metricsAddr
	}
	if metricsPath != "" {
		c.Metrics.Path = metricsPath
	}
}
