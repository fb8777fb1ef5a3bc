package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Backend != BackendAuto {
		t.Errorf("Backend = %q, want auto", cfg.Backend)
	}
	if cfg.SimDevices != 4 {
		t.Errorf("SimDevices = %d, want 4", cfg.SimDevices)
	}
	if time.Duration(cfg.PollInterval) != 5*time.Second {
		t.Errorf("PollInterval = %s, want 5s", time.Duration(cfg.PollInterval))
	}
	if !cfg.Collect.Memory || !cfg.Collect.Processes {
		t.Errorf("Collect defaults = %+v, want all families on", cfg.Collect)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on defaults: %v", err)
	}
}

func TestParseFull(t *testing.T) {
	doc := `
backend: sim
simDevices: 8
listenAddress: ":9999"
pollInterval: 250ms
uuidFormat: raw
logLevel: debug
collect:
  memory: true
  power: true
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Backend != BackendSim {
		t.Errorf("Backend = %q, want sim", cfg.Backend)
	}
	if cfg.SimDevices != 8 {
		t.Errorf("SimDevices = %d, want 8", cfg.SimDevices)
	}
	if cfg.ListenAddress != ":9999" {
		t.Errorf("ListenAddress = %q", cfg.ListenAddress)
	}
	if time.Duration(cfg.PollInterval) != 250*time.Millisecond {
		t.Errorf("PollInterval = %s, want 250ms", time.Duration(cfg.PollInterval))
	}
	if cfg.Collect.PCIe {
		t.Error("Collect.PCIe = true, explicit collect block must not be defaulted")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	_, err := Parse([]byte("pollInterval: soon"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("err = %v, want invalid duration", err)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad backend", func(c *Config) { c.Backend = "cuda" }, "unknown backend"},
		{"bad sim count", func(c *Config) { c.SimDevices = -1 }, "simDevices"},
		{"bad uuid format", func(c *Config) { c.UUIDFormat = "short" }, "uuidFormat"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "logLevel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Defaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Validate: err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosmi.yaml")
	if err := os.WriteFile(path, []byte("backend: nvml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendNVML {
		t.Errorf("Backend = %q, want nvml", cfg.Backend)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
