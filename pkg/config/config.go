// Package config loads the YAML configuration shared by the gosmi CLI and
// the metrics exporter.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in the config file.
const (
	BackendAuto   = "auto"
	BackendAMDSMI = "amdsmi"
	BackendNVML   = "nvml"
	BackendSim    = "sim"
)

// Duration wraps time.Duration for YAML parsing of strings like "5s".
type Duration time.Duration

// Collect toggles individual metric families in the exporter.
type Collect struct {
	Memory    bool `yaml:"memory"`
	Power     bool `yaml:"power"`
	PCIe      bool `yaml:"pcie"`
	Fans      bool `yaml:"fans"`
	Processes bool `yaml:"processes"`
	XGMI      bool `yaml:"xgmi"`
}

// Config is the top-level configuration document.
type Config struct {
	// Backend selects the native library: amdsmi, nvml, sim, or auto to
	// probe in that order.
	Backend string `yaml:"backend"`

	// SimDevices is the device count for the sim backend.
	SimDevices int `yaml:"simDevices"`

	// ListenAddress is where the exporter serves /metrics.
	ListenAddress string `yaml:"listenAddress"`

	// PollInterval is the watch refresh cadence.
	PollInterval Duration `yaml:"pollInterval"`

	// UUIDFormat selects the rendering of device UUIDs: canonical, raw,
	// or vendor-legacy.
	UUIDFormat string `yaml:"uuidFormat"`

	LogLevel string `yaml:"logLevel"`

	Collect Collect `yaml:"collect"`
}

// Load reads configuration from a file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	cfg.Defaults()
	return cfg, nil
}

// Defaults applies default values to unset fields.
func (c *Config) Defaults() {
	if c.Backend == "" {
		c.Backend = BackendAuto
	}
	if c.SimDevices == 0 {
		c.SimDevices = 4
	}
	if c.ListenAddress == "" {
		c.ListenAddress = ":9401"
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(5 * time.Second)
	}
	if c.UUIDFormat == "" {
		c.UUIDFormat = "canonical"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	zero := Collect{}
	if c.Collect == zero {
		c.Collect = Collect{Memory: true, Power: true, PCIe: true, Fans: true, Processes: true, XGMI: true}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendAMDSMI, BackendNVML, BackendSim:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.SimDevices < 1 {
		return fmt.Errorf("simDevices must be >= 1, got %d", c.SimDevices)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("pollInterval must be positive, got %s", time.Duration(c.PollInterval))
	}
	switch c.UUIDFormat {
	case "canonical", "raw", "vendor-legacy":
	default:
		return fmt.Errorf("unknown uuidFormat %q", c.UUIDFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
	return nil
}

// UnmarshalYAML implements custom YAML unmarshaling for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements custom YAML marshaling for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	if d == 0 {
		return "", nil
	}
	return time.Duration(d).String(), nil
}
