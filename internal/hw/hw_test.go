package hw

import (
	"errors"
	"math"
	"testing"

	"github.com/xmidt-org/talaria/boardlink"
	"github.com/xmidt-org/talaria/boardlink/actuation"
	cfg "github.com/xmidt-org/talaria/boardlink/internal/config"
)

type fakeCoils struct {
	writes []struct{ addr, value uint16 }
	err    error
}

func (f *fakeCoils) WriteSingleCoil(address, value uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.writes = append(f.writes, struct{ addr, value uint16 }{address, value})
	return nil, nil
}

func TestCoilOutputWritesOnOff(t *testing.T) {
	fc := &fakeCoils{}
	var unit uint8
	ep := &Endpoint{client: fc, setUnit: func(id uint8) { unit = id }}

	out := ep.Coil(7, 12)
	if err := out.Set(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := out.Set(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit != 7 {
		t.Fatalf("unit id = %d, want 7", unit)
	}
	if len(fc.writes) != 2 || fc.writes[0].value != coilOn || fc.writes[1].value != coilOff || fc.writes[0].addr != 12 {
		t.Fatalf("unexpected writes: %+v", fc.writes)
	}
}

func TestCoilOutputWrapsError(t *testing.T) {
	boom := errors.New("exception 2")
	ep := &Endpoint{client: &fakeCoils{err: boom}}
	err := ep.Coil(1, 3).Set(true)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

type fakeBus struct {
	writes [][]byte
}

func (f *fakeBus) Tx(w, r []byte) error {
	f.writes = append(f.writes, append([]byte(nil), w...))
	return nil
}

func TestHapticRegisterSequence(t *testing.T) {
	bus := &fakeBus{}
	h, err := newHaptic(bus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := actuation.NewPolicy(h, actuation.DefaultThresholds(), actuation.DefaultEffects())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Apply(20, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]byte{
		{regMode, modeInternalTrigger},
		{regLibrary, libraryERM},
		{regWaveSeq, actuation.EffectStrongClick100},
		{regWaveSeq + 1, actuation.EndOfSequence},
		{regGo, 1},
	}
	if len(bus.writes) != len(want) {
		t.Fatalf("writes = %v, want %v", bus.writes, want)
	}
	for i := range want {
		if bus.writes[i][0] != want[i][0] || bus.writes[i][1] != want[i][1] {
			t.Fatalf("write %d = %v, want %v", i, bus.writes[i], want[i])
		}
	}
}

func TestHapticRejectsSlot(t *testing.T) {
	h, _ := newHaptic(&fakeBus{})
	if err := h.SetWaveform(8, 1); err == nil {
		t.Fatalf("expected slot range error")
	}
}

func TestBuildChannelMapSim(t *testing.T) {
	m, closer, err := BuildChannelMap([]cfg.ChannelConfig{
		{ID: 4, Driver: cfg.DriverSim},
		{ID: 5, Driver: cfg.DriverSim},
	}, boardlink.Logger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer()

	if err := m.Drive(4, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o, _ := m.Lookup(4)
	if !o.(*SimOutput).High() {
		t.Fatalf("channel 4 should be high")
	}
	o, _ = m.Lookup(5)
	if o.(*SimOutput).High() {
		t.Fatalf("channel 5 should be untouched")
	}
	if err := m.Drive(9, true); !errors.Is(err, boardlink.ErrUnknownChannel) {
		t.Fatalf("err = %v, want ErrUnknownChannel", err)
	}
}

func TestBuildChannelMapUnknownDriver(t *testing.T) {
	if _, _, err := BuildChannelMap([]cfg.ChannelConfig{{ID: 1, Driver: "pwm"}}, boardlink.Logger{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildFusionSim(t *testing.T) {
	e, err := BuildFusion(cfg.SensorsConfig{
		Driver: cfg.DriverSim,
		Upper:  cfg.SensorConfig{Sim: []float64{1, 0, 0}},
		Lower:  cfg.SensorConfig{Sim: []float64{-1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	angle, err := e.Sample()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(angle-180) > 1e-9 {
		t.Fatalf("angle = %v, want 180", angle)
	}
}

func TestBuildPolicySim(t *testing.T) {
	c := cfg.Default()
	c.Board.Role = string(boardlink.RoleSensorFusion)
	cfg.Normalize(c)

	p, closer, err := BuildPolicy(c, boardlink.Logger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer()

	lvl, err := p.Apply(10, true)
	if err != nil || lvl != actuation.LevelMedium {
		t.Fatalf("Apply = %v, %v; want medium", lvl, err)
	}
}

func TestSimActuatorRecordsPlays(t *testing.T) {
	a := &SimActuator{}
	a.SetWaveform(0, 2)
	a.SetWaveform(1, 0)
	a.Go()
	n, effect := a.Plays()
	if n != 1 || effect != 2 {
		t.Fatalf("plays = %d effect = %d", n, effect)
	}
}
