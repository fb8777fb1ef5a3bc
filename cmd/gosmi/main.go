package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gosmi-project/gosmi/pkg/config"
	"github.com/gosmi-project/gosmi/pkg/native"
	"github.com/gosmi-project/gosmi/pkg/smi"
)

var (
	configPath   string
	backendName  string
	outputFormat string
	simDevices   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gosmi",
		Short: "GPU system management CLI",
		Long:  `gosmi inspects GPU devices through the system management library: identity, telemetry, topology and processes.`,
	}

	defaultBackend := config.BackendAuto
	if envBackend := os.Getenv("GOSMI_BACKEND"); envBackend != "" {
		defaultBackend = envBackend
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", defaultBackend, "Native backend (amdsmi, nvml, sim, auto; env: GOSMI_BACKEND)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().IntVar(&simDevices, "sim-devices", 0, "Device count for the sim backend")

	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(topologyCmd())
	rootCmd.AddCommand(processesCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the optional config file with command-line flags; flags
// win.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Defaults()
	if backendName != config.BackendAuto {
		cfg.Backend = backendName
	}
	if simDevices > 0 {
		cfg.SimDevices = simDevices
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func selectBackend(cfg *config.Config) (native.Library, string, error) {
	switch cfg.Backend {
	case config.BackendAMDSMI:
		if !native.IsAMDSMIAvailable() {
			return nil, "", fmt.Errorf("amdsmi backend unavailable on this system")
		}
		return native.NewAMDSMI(), config.BackendAMDSMI, nil
	case config.BackendNVML:
		if !native.IsNVMLAvailable() {
			return nil, "", fmt.Errorf("nvml backend unavailable on this system")
		}
		return native.NewNVML(), config.BackendNVML, nil
	case config.BackendSim:
		return native.NewSim(native.DefaultSimDevices(cfg.SimDevices)...), config.BackendSim, nil
	case config.BackendAuto:
		if native.IsAMDSMIAvailable() {
			return native.NewAMDSMI(), config.BackendAMDSMI, nil
		}
		if native.IsNVMLAvailable() {
			return native.NewNVML(), config.BackendNVML, nil
		}
		return native.NewSim(native.DefaultSimDevices(cfg.SimDevices)...), config.BackendSim, nil
	default:
		return nil, "", fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// openManager builds and initializes a Manager from the merged config. The
// caller owns the returned Manager and must call Shutdown.
func openManager() (*smi.Manager, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)

	lib, name, err := selectBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("selected backend", "backend", name)

	m := smi.New(lib, logger)
	if err := m.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize %s backend: %w", name, err)
	}
	return m, cfg, nil
}
