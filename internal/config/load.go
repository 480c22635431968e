package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load builds a Config from defaults, the YAML file at path (skipped when path is empty),
// and BOARDLINK_* environment overrides, then validates and normalizes it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	Normalize(cfg)
	return cfg, nil
}

// Default returns the observed firmware defaults: client mode to port 8765, 5 s reconnect,
// 300 ms telemetry.
func Default() *Config {
	return &Config{
		Board: BoardConfig{Role: "channel_dispatch"},
		Peer: PeerConfig{
			Mode:   ModeClient,
			Host:   "192.168.1.100",
			Port:   8765,
			Path:   "/",
			Listen: ":81",
		},
		Timing: TimingConfig{
			ReconnectMs: 5000,
			HandshakeMs: 10000,
			WriteMs:     2000,
			LoopMs:      10,
			TelemetryMs: 300,
		},
		Envelope: EnvelopeConfig{Type: EnvelopePlain},
		Log:      LogConfig{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
		Sensors:  SensorsConfig{Driver: DriverSim},
		Actuator: ActuatorConfig{Driver: DriverSim, Addr: 0x5A},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOARDLINK_ROLE"); v != "" {
		cfg.Board.Role = v
	}
	if v := os.Getenv("BOARDLINK_PEER_URL"); v != "" {
		cfg.Peer.URL = v
	}
	if v := os.Getenv("BOARDLINK_STATUS_ADDR"); v != "" {
		cfg.Status.Addr = v
	}
	if v := os.Getenv("BOARDLINK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Debug = b
		}
	}
}
