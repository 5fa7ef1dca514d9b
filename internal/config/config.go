// Package config handles configuration loading from YAML files and environment
// variables. Precedence: CLI flags > environment > external file > embedded
// config > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "1m", "15m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all listener configuration.
type Config struct {
	Broker   BrokerConfig   `yaml:"broker"`
	Topics   TopicsConfig   `yaml:"topics"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Listener ListenerConfig `yaml:"listener"`
	State    StateConfig    `yaml:"state"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BrokerConfig holds MQTT broker connection settings.
type BrokerConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
}

// TopicsConfig holds the MQTT topics the listener speaks on.
type TopicsConfig struct {
	Brightness string `yaml:"brightness"`
	Refresh    string `yaml:"refresh"`
}

// RangeConfig maps a 0-100 percentage onto a monitor-specific value range.
type RangeConfig struct {
	Min    int `yaml:"min"`
	Max    int `yaml:"max"`
	Offset int `yaml:"offset"`
}

// MonitorConfig holds the per-control value ranges.
type MonitorConfig struct {
	Brightness RangeConfig `yaml:"brightness"`
	Contrast   RangeConfig `yaml:"contrast"`
}

// ListenerConfig holds runtime behavior settings.
type ListenerConfig struct {
	// ResyncInterval controls how often a refresh request is re-published
	// to recover missed updates. Zero disables periodic resync.
	ResyncInterval Duration `yaml:"resync_interval"`

	// ApplyTimeout bounds a single apply pass across all displays.
	ApplyTimeout Duration `yaml:"apply_timeout"`
}

// StateConfig holds last-applied-level persistence settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings. File output rotates at MaxSizeMB
// keeping MaxBackups old files.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:      "",
			ClientID: "monitor-mqtt-listener",
		},
		Topics: TopicsConfig{
			Brightness: "homeassistant/light/brightness_pct",
			Refresh:    "homeassistant/light/refresh",
		},
		Monitor: MonitorConfig{
			Brightness: RangeConfig{Min: 3, Max: 100},
			Contrast:   RangeConfig{Min: 60, Max: 92},
		},
		Listener: ListenerConfig{
			ResyncInterval: Duration{15 * time.Minute},
			ApplyTimeout:   Duration{10 * time.Second},
		},
		State: StateConfig{
			Path: "./state.json",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "./monitor-listener.log",
			MaxSizeMB:  1,
			MaxBackups: 5,
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	Broker   string
	Username string
	Password string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted         → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	// Layer 1: embedded config (lowest priority data layer)
	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	// Layer 2: external YAML file
	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0] // caller-supplied (may be "")
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		}
	}

	// Layer 3: environment variables
	applyEnvOverrides(cfg)

	// Layer 4: CLI flags (highest priority)
	if cli.Broker != "" {
		cfg.Broker.URL = cli.Broker
	}
	if cli.Username != "" {
		cfg.Broker.Username = cli.Username
	}
	if cli.Password != "" {
		cfg.Broker.Password = cli.Password
	}

	return cfg, nil
}

// Load reads configuration from a single YAML file merged with defaults and
// environment overrides. Used by the watcher on reload.
func Load(path string) (*Config, error) {
	return LoadLayered(CLIOverrides{}, nil, path)
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides. The MM_* names
// take precedence; the HA_MQTT_* names the original deployment used are
// honored as a fallback.
func applyEnvOverrides(cfg *Config) {
	if url := firstEnv("MM_BROKER_URL", "HA_MQTT_Address"); url != "" {
		cfg.Broker.URL = normalizeBrokerURL(url)
	}
	if user := firstEnv("MM_MQTT_USERNAME", "HA_MQTT_Username"); user != "" {
		cfg.Broker.Username = user
	}
	if pass := firstEnv("MM_MQTT_PASSWORD", "HA_MQTT_Password"); pass != "" {
		cfg.Broker.Password = pass
	}
	if level := os.Getenv("MM_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// normalizeBrokerURL accepts a bare host ("homeassistant.local") and expands
// it to the scheme+port form the MQTT client requires.
func normalizeBrokerURL(url string) string {
	if strings.Contains(url, "://") {
		return url
	}
	if !strings.Contains(url, ":") {
		url += ":1883"
	}
	return "tcp://" + url
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Broker.URL == "" {
		return fmt.Errorf("broker URL is required")
	}
	if c.Topics.Brightness == "" {
		return fmt.Errorf("brightness topic is required")
	}
	for name, r := range map[string]RangeConfig{
		"brightness": c.Monitor.Brightness,
		"contrast":   c.Monitor.Contrast,
	} {
		if r.Min < 0 || r.Max > 100 || r.Min > r.Max {
			return fmt.Errorf("%s range [%d, %d] is invalid", name, r.Min, r.Max)
		}
	}
	return nil
}
