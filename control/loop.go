// Package control runs a board: the per-cycle control loop and the telemetry task.
package control

import (
	"context"
	"errors"
	"fmt"
	goruntime "runtime"
	"time"

	"github.com/xmidt-org/talaria/boardlink"
	"github.com/xmidt-org/talaria/boardlink/actuation"
	"github.com/xmidt-org/talaria/boardlink/channelmap"
	"github.com/xmidt-org/talaria/boardlink/fusion"
	"github.com/xmidt-org/talaria/boardlink/protocol"
)

// Channel is the part of the connection manager the loop and telemetry task use.
type Channel interface {
	Send(frame []byte) error
	Service(handler func([]byte)) int
	State() boardlink.ChannelState
	SessionID() string
}

// LoopConfig wires a Loop. Outputs is required for the channel-dispatch role, Engine and
// Policy for the sensor-fusion role.
type LoopConfig struct {
	Role     boardlink.Role
	Identity string
	Channel  Channel
	Envelope protocol.Envelope // default protocol.Plain
	State    *State            // default new State

	Outputs *channelmap.Map
	Engine  *fusion.Engine
	Policy  *actuation.Policy

	Interval          time.Duration // 0 runs cycles back to back
	HeartbeatInterval time.Duration // 0 disables
	HeartbeatText     string

	Logger boardlink.Logger
	Now    func() time.Time
}

// Loop is the top-level orchestrator. Step and Run must be called from one goroutine.
type Loop struct {
	cfg   LoopConfig
	state *State

	lastHeartbeat time.Time
	sensorErr     bool
	actuatorErr   bool
}

var (
	errNilChannel = errors.New("control: channel required")
	errNoOutputs  = errors.New("control: channel dispatch role requires a channel map")
	errNoFusion   = errors.New("control: sensor fusion role requires an engine and a policy")
)

func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Channel == nil {
		return nil, errNilChannel
	}
	switch cfg.Role {
	case boardlink.RoleChannelDispatch:
		if cfg.Outputs == nil {
			return nil, errNoOutputs
		}
	case boardlink.RoleSensorFusion:
		if cfg.Engine == nil || cfg.Policy == nil {
			return nil, errNoFusion
		}
	default:
		return nil, fmt.Errorf("%w: role %q", boardlink.ErrInvalidParameter, cfg.Role)
	}
	if cfg.Envelope == nil {
		cfg.Envelope = protocol.Plain{}
	}
	if cfg.State == nil {
		cfg.State = &State{}
	}
	if cfg.Identity == "" {
		cfg.Identity = cfg.Role.DefaultIdentity()
	}
	if cfg.HeartbeatText == "" {
		cfg.HeartbeatText = "heartbeat"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Loop{cfg: cfg, state: cfg.State}, nil
}

// State returns the shared state the loop publishes into.
func (l *Loop) State() *State { return l.state }

// Run steps the loop until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	l.cfg.Logger.Printf("control: %s loop started (identity=%s interval=%s)", l.cfg.Role, l.cfg.Identity, l.cfg.Interval)
	if l.cfg.Interval <= 0 {
		for ctx.Err() == nil {
			l.Step()
			goruntime.Gosched()
		}
		return
	}
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step runs one cycle: service the channel, then sample and actuate, then heartbeat.
func (l *Loop) Step() {
	l.cfg.Channel.Service(func(frame []byte) { _ = l.Dispatch(frame) })
	if l.cfg.Role == boardlink.RoleSensorFusion {
		l.sampleAndActuate()
	}
	l.heartbeat()
}

func (l *Loop) sampleAndActuate() {
	angle, err := l.cfg.Engine.Sample()
	if err != nil {
		if !l.sensorErr {
			l.cfg.Logger.Printf("control: sensor read failed, actuation paused: %v", err)
		}
		l.sensorErr = true
		l.state.MarkStale()
		return
	}
	if l.sensorErr {
		l.cfg.Logger.Printf("control: sensor reads recovered")
	}
	l.sensorErr = false
	l.state.PublishAngle(angle, l.cfg.Now())

	lvl, err := l.cfg.Policy.Apply(angle, l.state.Enabled())
	if err != nil {
		if !l.actuatorErr {
			l.cfg.Logger.Printf("control: actuator %s waveform failed: %v", lvl, err)
		}
		l.actuatorErr = true
		return
	}
	l.actuatorErr = false
}

func (l *Loop) heartbeat() {
	if l.cfg.HeartbeatInterval <= 0 || l.cfg.Channel.State() != boardlink.Connected {
		return
	}
	now := l.cfg.Now()
	if !l.lastHeartbeat.IsZero() && now.Sub(l.lastHeartbeat) < l.cfg.HeartbeatInterval {
		return
	}
	l.lastHeartbeat = now
	if err := l.cfg.Channel.Send([]byte(l.cfg.HeartbeatText)); err != nil {
		l.cfg.Logger.Debugf("control: heartbeat dropped: %v", err)
	}
}

// Dispatch decodes one inbound frame and applies it. Every error is logged here;
// the return value exists for callers that want to inspect the outcome.
func (l *Loop) Dispatch(frame []byte) error {
	payload, err := l.cfg.Envelope.Unwrap(frame)
	if err != nil {
		l.cfg.Logger.Printf("control: discarding frame: %v", err)
		return err
	}
	cmd, err := protocol.Decode(payload, l.cfg.Role)
	if err != nil {
		l.cfg.Logger.Printf("control: discarding frame %q: %v", truncate(payload), err)
		return err
	}

	switch cmd.Kind {
	case protocol.CommandTurnOn, protocol.CommandTurnOff:
		if l.cfg.Outputs == nil {
			return l.unsupported(cmd)
		}
		on := cmd.Kind == protocol.CommandTurnOn
		if err := l.cfg.Outputs.Drive(cmd.Channel, on); err != nil {
			l.cfg.Logger.Printf("control: %s led_id=%d: %v", cmd.Kind, cmd.Channel, err)
			return err
		}
		l.cfg.Logger.Debugf("control: %s led_id=%d", cmd.Kind, cmd.Channel)
		return nil
	case protocol.CommandSetActuatorEnabled:
		if l.cfg.Policy == nil {
			return l.unsupported(cmd)
		}
		l.state.SetEnabled(cmd.Enabled)
		l.cfg.Logger.Printf("control: actuator enabled=%t", cmd.Enabled)
		return nil
	case protocol.CommandUnknown:
		l.cfg.Logger.Printf("control: ignoring unknown command %q", cmd.Name)
		return fmt.Errorf("%w: %q", boardlink.ErrUnknownCommand, cmd.Name)
	default:
		return fmt.Errorf("%w: kind %d", boardlink.ErrUnknownCommand, cmd.Kind)
	}
}

func (l *Loop) unsupported(cmd protocol.Command) error {
	l.cfg.Logger.Printf("control: %s not supported by role %s", cmd.Kind, l.cfg.Role)
	return fmt.Errorf("%w: %s", boardlink.ErrRoleCapability, cmd.Kind)
}

// Snapshot reports the current view of the board.
func (l *Loop) Snapshot() boardlink.Snapshot {
	snap := boardlink.Snapshot{
		Role:            l.cfg.Role,
		Identity:        l.cfg.Identity,
		State:           l.cfg.Channel.State(),
		SessionID:       l.cfg.Channel.SessionID(),
		Angle:           l.state.Angle(),
		ActuatorEnabled: l.state.Enabled(),
		Stale:           l.state.Stale(),
	}
	if at := l.state.LastSample(); !at.IsZero() {
		snap.LastSample = &at
	}
	return snap
}

func truncate(b []byte) string {
	const limit = 64
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
