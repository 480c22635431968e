package control

import (
	"context"
	"errors"
	"time"

	"github.com/xmidt-org/talaria/boardlink"
	"github.com/xmidt-org/talaria/boardlink/protocol"
)

// TelemetryConfig wires a Telemetry task.
type TelemetryConfig struct {
	Channel  Channel
	State    *State
	Envelope protocol.Envelope // default protocol.Plain
	Interval time.Duration     // default 300ms
	Logger   boardlink.Logger
}

// Telemetry periodically reports the published angle. It only reads State and never
// samples sensors itself.
type Telemetry struct {
	cfg TelemetryConfig
}

func NewTelemetry(cfg TelemetryConfig) (*Telemetry, error) {
	if cfg.Channel == nil {
		return nil, errNilChannel
	}
	if cfg.State == nil {
		return nil, errors.New("control: telemetry requires shared state")
	}
	if cfg.Envelope == nil {
		cfg.Envelope = protocol.Plain{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 300 * time.Millisecond
	}
	return &Telemetry{cfg: cfg}, nil
}

// Run emits once per interval until ctx is canceled.
func (t *Telemetry) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.EmitOnce(); err != nil {
				t.cfg.Logger.Printf("telemetry: %v", err)
			}
		}
	}
}

// EmitOnce sends one angle frame when the actuator is enabled, the last sampling cycle
// produced an angle and the channel is connected; otherwise it skips and reports false.
func (t *Telemetry) EmitOnce() (bool, error) {
	if !t.cfg.State.Enabled() {
		t.cfg.Logger.Debugf("telemetry: skipped, actuator disabled")
		return false, nil
	}
	if t.cfg.State.Stale() {
		t.cfg.Logger.Debugf("telemetry: skipped, angle stale")
		return false, nil
	}
	if st := t.cfg.Channel.State(); st != boardlink.Connected {
		t.cfg.Logger.Debugf("telemetry: skipped, channel %s", st)
		return false, nil
	}
	payload, err := protocol.EncodeTelemetry(protocol.TelemetryFrame{Field: protocol.FieldAngle, Value: t.cfg.State.Angle()})
	if err != nil {
		return false, err
	}
	frame, err := t.cfg.Envelope.Wrap(payload)
	if err != nil {
		return false, err
	}
	if err := t.cfg.Channel.Send(frame); err != nil {
		if errors.Is(err, boardlink.ErrNotConnected) {
			t.cfg.Logger.Debugf("telemetry: dropped, %v", err)
			return false, nil
		}
		return false, err
	}
	return true, nil
}
