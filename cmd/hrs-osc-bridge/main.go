package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/takuu-o/hrs-osc-bridge/internal/ble"
	"github.com/takuu-o/hrs-osc-bridge/internal/bridge"
	"github.com/takuu-o/hrs-osc-bridge/internal/config"
	"github.com/takuu-o/hrs-osc-bridge/internal/vrcosc"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/hrs-osc-bridge/config.yaml)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	setupLogging(cfg.LogLevel)
	printBanner(cfg)

	// The normalization range is validated again at construction so a bad
	// range can never reach the per-reading path.
	norm, err := bridge.NewNormalizer(cfg.Sensor.MinBPM, cfg.Sensor.MaxBPM)
	if err != nil {
		log.Fatalf("normalizer: %v", err)
	}

	adapter := ble.NewNativeAdapter()
	if err := adapter.Enable(); err != nil {
		log.Fatalf("Failed to enable BLE adapter: %v\n\nCheck that Bluetooth is turned on.", err)
	}
	log.Println("BLE adapter ready")

	emitter := vrcosc.New(cfg.OSC.Host, cfg.OSC.Port, cfg.OSC.AddressPrefix)
	log.Printf("OSC emitter ready (%s:%d)", cfg.OSC.Host, cfg.OSC.Port)

	supervisor := bridge.NewSupervisor(adapter, emitter, norm, bridge.SupervisorConfig{
		Session: bridge.SessionConfig{
			NamePattern:        cfg.Sensor.NamePattern,
			ScanTimeout:        cfg.Connection.ScanTimeout,
			ConnectTimeout:     cfg.Connection.ConnectTimeout,
			MalformedTolerance: cfg.Connection.MalformedTolerance,
			BPMParameter:       cfg.OSC.BPMParameter,
			WaitParameter:      cfg.OSC.WaitParameter,
		},
		ReconnectInitial: cfg.Connection.ReconnectInitial,
		ReconnectMax:     cfg.Connection.ReconnectMax,
	})

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Ready! Ctrl+C to quit.")

	if err := supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("supervisor: %v", err)
	}
	log.Println("Goodbye!")
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== hrs-osc-bridge ===")
	fmt.Printf("  OSC:     %s:%d (%s)\n", cfg.OSC.Host, cfg.OSC.Port, cfg.OSC.AddressPrefix)
	fmt.Printf("  Params:  %s (int), %s (float)\n", cfg.OSC.BPMParameter, cfg.OSC.WaitParameter)
	if cfg.Sensor.NamePattern != "" {
		fmt.Printf("  Sensor:  %q\n", cfg.Sensor.NamePattern)
	} else {
		fmt.Println("  Sensor:  any heart rate sensor")
	}
	fmt.Printf("  Range:   %d-%d BPM\n", cfg.Sensor.MinBPM, cfg.Sensor.MaxBPM)
	fmt.Printf("  Scan:    %s timeout\n", cfg.Connection.ScanTimeout)
	fmt.Printf("  Retry:   %s-%s backoff\n", cfg.Connection.ReconnectInitial, cfg.Connection.ReconnectMax)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("======================")
}
