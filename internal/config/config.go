// Package config loads and validates the bridge configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	OSC        OSCConfig        `yaml:"osc"`
	Sensor     SensorConfig     `yaml:"sensor"`
	Connection ConnectionConfig `yaml:"connection"`
	LogLevel   string           `yaml:"log_level"`
}

// OSCConfig holds the OSC destination and parameter surface.
type OSCConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	AddressPrefix string `yaml:"address_prefix"`
	BPMParameter  string `yaml:"bpm_parameter"`
	WaitParameter string `yaml:"wait_parameter"`
}

// SensorConfig holds sensor selection and the normalization range.
type SensorConfig struct {
	// NamePattern is matched as a substring of the advertised device name.
	// Empty matches any device advertising the Heart Rate service.
	NamePattern string `yaml:"name_pattern"`
	MinBPM      int    `yaml:"min_bpm"`
	MaxBPM      int    `yaml:"max_bpm"`
}

// ConnectionConfig holds session lifecycle timing.
type ConnectionConfig struct {
	ScanTimeout        time.Duration `yaml:"scan_timeout"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	ReconnectInitial   time.Duration `yaml:"reconnect_initial"`
	ReconnectMax       time.Duration `yaml:"reconnect_max"`
	MalformedTolerance int           `yaml:"malformed_tolerance"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hrs-osc-bridge")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		OSC: OSCConfig{
			Host:          "127.0.0.1",
			Port:          9000,
			AddressPrefix: "/avatar/parameters/",
			BPMParameter:  "heartbeat_value",
			WaitParameter: "heartbeat_waittime",
		},
		Sensor: SensorConfig{
			NamePattern: "",
			MinBPM:      32,
			MaxBPM:      192,
		},
		Connection: ConnectionConfig{
			ScanTimeout:        10 * time.Second,
			ConnectTimeout:     20 * time.Second,
			ReconnectInitial:   3 * time.Second,
			ReconnectMax:       30 * time.Second,
			MalformedTolerance: 3,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.OSC.Host == "" {
		return fmt.Errorf("osc.host must not be empty")
	}

	if c.OSC.Port <= 0 || c.OSC.Port > 65535 {
		return fmt.Errorf("osc.port must be in 1..65535, got %d", c.OSC.Port)
	}

	if c.OSC.BPMParameter == "" {
		return fmt.Errorf("osc.bpm_parameter must not be empty")
	}

	if c.OSC.WaitParameter == "" {
		return fmt.Errorf("osc.wait_parameter must not be empty")
	}

	if c.Sensor.MaxBPM <= c.Sensor.MinBPM {
		return fmt.Errorf("sensor.max_bpm (%d) must be greater than sensor.min_bpm (%d)", c.Sensor.MaxBPM, c.Sensor.MinBPM)
	}

	if c.Sensor.MinBPM < 0 {
		return fmt.Errorf("sensor.min_bpm must be >= 0, got %d", c.Sensor.MinBPM)
	}

	if c.Connection.ScanTimeout <= 0 {
		return fmt.Errorf("connection.scan_timeout must be > 0, got %s", c.Connection.ScanTimeout)
	}

	if c.Connection.ConnectTimeout <= 0 {
		return fmt.Errorf("connection.connect_timeout must be > 0, got %s", c.Connection.ConnectTimeout)
	}

	if c.Connection.ReconnectInitial <= 0 {
		return fmt.Errorf("connection.reconnect_initial must be > 0, got %s", c.Connection.ReconnectInitial)
	}

	if c.Connection.ReconnectMax < c.Connection.ReconnectInitial {
		return fmt.Errorf("connection.reconnect_max (%s) must be >= connection.reconnect_initial (%s)",
			c.Connection.ReconnectMax, c.Connection.ReconnectInitial)
	}

	if c.Connection.MalformedTolerance < 1 {
		return fmt.Errorf("connection.malformed_tolerance must be >= 1, got %d", c.Connection.MalformedTolerance)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}
