package hw

import (
	"sync"

	"github.com/xmidt-org/talaria/boardlink"
)

// SimOutput keeps the level in memory and logs each change.
type SimOutput struct {
	ID  int
	Log boardlink.Logger

	mu   sync.Mutex
	high bool
}

func (o *SimOutput) Set(high bool) error {
	o.mu.Lock()
	changed := o.high != high
	o.high = high
	o.mu.Unlock()
	if changed {
		o.Log.Printf("[hw] sim channel %d -> %v", o.ID, high)
	}
	return nil
}

func (o *SimOutput) High() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.high
}

// SimSensor reports a fixed vector, replaceable at runtime.
type SimSensor struct {
	mu sync.Mutex
	v  boardlink.Vec3
}

func NewSimSensor(v boardlink.Vec3) *SimSensor { return &SimSensor{v: v} }

func (s *SimSensor) Set(v boardlink.Vec3) {
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}

func (s *SimSensor) ReadAcceleration() (boardlink.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v, nil
}

// SimActuator records the waveform sequence and logs every play.
type SimActuator struct {
	Log boardlink.Logger

	mu    sync.Mutex
	slots [waveSlots]uint8
	plays int
}

func (a *SimActuator) SetWaveform(slot, effect uint8) error {
	if int(slot) >= len(a.slots) {
		return nil
	}
	a.mu.Lock()
	a.slots[slot] = effect
	a.mu.Unlock()
	return nil
}

func (a *SimActuator) Go() error {
	a.mu.Lock()
	a.plays++
	first := a.slots[0]
	a.mu.Unlock()
	a.Log.Debugf("[hw] sim haptic play effect=%d", first)
	return nil
}

// Plays returns how many times Go was called and the effect in slot 0.
func (a *SimActuator) Plays() (int, uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.plays, a.slots[0]
}
