package boardlink

import (
	"time"
)

// Options configures a board agent. Durations are already resolved from configuration.
type Options struct {
	Role     Role
	Identity string

	// PeerURL is dialed in client mode (e.g. ws://192.168.1.100:8765/).
	PeerURL string
	// ListenAddr is served in hosted mode; empty selects client mode.
	ListenAddr string
	// StatusAddr serves GET /api/state; empty disables it in client mode.
	StatusAddr string

	Timing TimingConfig

	HeartbeatText string
	InboundQueue  int
	Debug         bool
}

type TimingConfig struct {
	ReconnectBackoff  time.Duration
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	LoopInterval      time.Duration
	TelemetryInterval time.Duration
	// HeartbeatInterval of zero disables the heartbeat frame.
	HeartbeatInterval time.Duration
}

// DefaultOptions gives the observed firmware defaults for a role.
func DefaultOptions(role Role) Options {
	opts := Options{
		Role:          role,
		Identity:      role.DefaultIdentity(),
		HeartbeatText: "heartbeat",
		InboundQueue:  32,
	}
	opts.Timing = TimingConfig{
		ReconnectBackoff:  5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      2 * time.Second,
		LoopInterval:      10 * time.Millisecond,
		TelemetryInterval: 300 * time.Millisecond,
	}
	if role == RoleChannelDispatch {
		opts.Timing.HeartbeatInterval = 5 * time.Second
	}
	return opts
}
