package config

import (
	"fmt"
	"net/url"

	"github.com/xmidt-org/talaria/boardlink"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	role := boardlink.Role(cfg.Board.Role)
	if !role.Valid() {
		return fmt.Errorf("board.role %q: want %s or %s", cfg.Board.Role, boardlink.RoleChannelDispatch, boardlink.RoleSensorFusion)
	}

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	switch cfg.Peer.Mode {
	case ModeClient:
		if cfg.Peer.URL != "" {
			u, err := url.Parse(cfg.Peer.URL)
			if err != nil {
				return fmt.Errorf("peer.url: %w", err)
			}
			if u.Scheme != "ws" && u.Scheme != "wss" {
				return fmt.Errorf("peer.url %q: scheme must be ws or wss", cfg.Peer.URL)
			}
		} else {
			if cfg.Peer.Host == "" {
				return fmt.Errorf("peer.host is required in client mode")
			}
			if cfg.Peer.Port <= 0 || cfg.Peer.Port > 65535 {
				return fmt.Errorf("peer.port %d out of range", cfg.Peer.Port)
			}
		}
	case ModeHosted:
		if cfg.Peer.Listen == "" {
			return fmt.Errorf("peer.listen is required in hosted mode")
		}
	default:
		return fmt.Errorf("peer.mode %q: want %s or %s", cfg.Peer.Mode, ModeClient, ModeHosted)
	}

	t := cfg.Timing
	for name, v := range map[string]int{
		"timing.reconnect_ms": t.ReconnectMs,
		"timing.handshake_ms": t.HandshakeMs,
		"timing.write_ms":     t.WriteMs,
		"timing.telemetry_ms": t.TelemetryMs,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	if t.LoopMs < 0 {
		return fmt.Errorf("timing.loop_ms must be >= 0")
	}
	if t.HeartbeatMs != nil && *t.HeartbeatMs < 0 {
		return fmt.Errorf("timing.heartbeat_ms must be >= 0")
	}

	switch cfg.Envelope.Type {
	case "", EnvelopePlain:
	case EnvelopeWRP:
		if cfg.Envelope.Source == "" {
			return fmt.Errorf("envelope.source is required for wrp")
		}
	default:
		return fmt.Errorf("envelope.type %q: want %s or %s", cfg.Envelope.Type, EnvelopePlain, EnvelopeWRP)
	}

	// ------------------------------------------------------------
	// ROLE CAPABILITIES
	// ------------------------------------------------------------

	switch role {
	case boardlink.RoleChannelDispatch:
		if err := validateChannels(cfg.Channels); err != nil {
			return err
		}
	case boardlink.RoleSensorFusion:
		if err := validateFusion(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateChannels(chs []ChannelConfig) error {
	seen := make(map[int]struct{}, len(chs))
	// key = endpoint | unit | coil
	coils := make(map[string]int)
	for _, c := range chs {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("channel %d defined twice", c.ID)
		}
		seen[c.ID] = struct{}{}

		switch c.Driver {
		case DriverGPIO:
			if c.Pin == "" {
				return fmt.Errorf("channel %d: gpio driver requires pin", c.ID)
			}
		case DriverModbus:
			if c.Endpoint == "" {
				return fmt.Errorf("channel %d: modbus driver requires endpoint", c.ID)
			}
			key := fmt.Sprintf("%s|%d|%d", c.Endpoint, c.UnitID, c.Coil)
			if prev, ok := coils[key]; ok {
				return fmt.Errorf("channel %d: coil %d on %s unit %d already used by channel %d", c.ID, c.Coil, c.Endpoint, c.UnitID, prev)
			}
			coils[key] = c.ID
		case DriverSim:
		default:
			return fmt.Errorf("channel %d: unknown driver %q", c.ID, c.Driver)
		}
	}
	return nil
}

func validateFusion(cfg *Config) error {
	switch cfg.Sensors.Driver {
	case DriverSim:
		for name, s := range map[string]SensorConfig{"upper": cfg.Sensors.Upper, "lower": cfg.Sensors.Lower} {
			if s.Sim != nil && len(s.Sim) != 3 {
				return fmt.Errorf("sensors.%s.sim must have 3 values", name)
			}
		}
	case DriverMPU9250:
		for name, s := range map[string]SensorConfig{"upper": cfg.Sensors.Upper, "lower": cfg.Sensors.Lower} {
			if s.SPI == "" || s.CS == "" {
				return fmt.Errorf("sensors.%s: mpu9250 requires spi and cs", name)
			}
		}
		if cfg.Sensors.Upper.SPI == cfg.Sensors.Lower.SPI && cfg.Sensors.Upper.CS == cfg.Sensors.Lower.CS {
			return fmt.Errorf("sensors: upper and lower refer to the same device")
		}
	default:
		return fmt.Errorf("sensors.driver %q: want %s or %s", cfg.Sensors.Driver, DriverMPU9250, DriverSim)
	}
	for name, s := range map[string]SensorConfig{"upper": cfg.Sensors.Upper, "lower": cfg.Sensors.Lower} {
		if m := s.Mount; m != nil && (len(m.X) != 3 || len(m.Y) != 3 || len(m.Z) != 3) {
			return fmt.Errorf("sensors.%s.mount rows must have 3 values", name)
		}
	}

	switch cfg.Actuator.Driver {
	case DriverSim, DriverDRV2605:
	default:
		return fmt.Errorf("actuator.driver %q: want %s or %s", cfg.Actuator.Driver, DriverDRV2605, DriverSim)
	}

	a := cfg.Actuation
	if a.MediumAboveDeg != nil && a.StrongAboveDeg != nil && *a.StrongAboveDeg < *a.MediumAboveDeg {
		return fmt.Errorf("actuation.strong_above_deg must be >= medium_above_deg")
	}
	return nil
}
