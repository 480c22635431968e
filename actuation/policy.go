// Package actuation maps the fused angle to a haptic waveform.
package actuation

import (
	"fmt"
	"math"
)

// Actuator queues waveform effects into numbered slots and plays the queued sequence.
// Effect 0 terminates a sequence.
type Actuator interface {
	SetWaveform(slot, effect uint8) error
	Go() error
}

// EndOfSequence is the effect id that terminates a waveform sequence.
const EndOfSequence uint8 = 0

// DRV2605 library effect ids.
const (
	EffectStrongClick100 uint8 = 1
	EffectStrongClick60  uint8 = 2
)

type Level int

const (
	LevelNone Level = iota
	LevelMedium
	LevelStrong
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelMedium:
		return "medium"
	case LevelStrong:
		return "strong"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Thresholds are inclusive upper bounds in degrees: angle <= Medium is silent,
// angle <= Strong is medium, anything above is strong.
type Thresholds struct {
	Medium float64
	Strong float64
}

type Effects struct {
	Medium uint8
	Strong uint8
}

// Policy decides and issues one waveform per call.
type Policy struct {
	actuator   Actuator
	thresholds Thresholds
	effects    Effects
}

func DefaultThresholds() Thresholds { return Thresholds{Medium: 5, Strong: 15} }

func DefaultEffects() Effects {
	return Effects{Medium: EffectStrongClick60, Strong: EffectStrongClick100}
}

func NewPolicy(a Actuator, t Thresholds, e Effects) (*Policy, error) {
	if a == nil {
		return nil, fmt.Errorf("actuation: actuator required")
	}
	if t.Strong < t.Medium {
		return nil, fmt.Errorf("actuation: strong threshold %v below medium %v", t.Strong, t.Medium)
	}
	if e.Medium == EndOfSequence || e.Strong == EndOfSequence {
		return nil, fmt.Errorf("actuation: effect 0 is reserved for end of sequence")
	}
	return &Policy{actuator: a, thresholds: t, effects: e}, nil
}

// Decide is pure: it never touches the actuator.
func (p *Policy) Decide(angle float64, enabled bool) Level {
	switch {
	case !enabled, math.IsNaN(angle), angle <= p.thresholds.Medium:
		return LevelNone
	case angle <= p.thresholds.Strong:
		return LevelMedium
	default:
		return LevelStrong
	}
}

// Apply issues effect, end-of-sequence, play when Decide selects a waveform.
func (p *Policy) Apply(angle float64, enabled bool) (Level, error) {
	lvl := p.Decide(angle, enabled)
	var effect uint8
	switch lvl {
	case LevelMedium:
		effect = p.effects.Medium
	case LevelStrong:
		effect = p.effects.Strong
	default:
		return lvl, nil
	}
	if err := p.actuator.SetWaveform(0, effect); err != nil {
		return lvl, fmt.Errorf("set waveform slot 0: %w", err)
	}
	if err := p.actuator.SetWaveform(1, EndOfSequence); err != nil {
		return lvl, fmt.Errorf("set waveform slot 1: %w", err)
	}
	if err := p.actuator.Go(); err != nil {
		return lvl, fmt.Errorf("play: %w", err)
	}
	return lvl, nil
}
