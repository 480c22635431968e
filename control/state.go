package control

import (
	"math"
	"sync/atomic"
	"time"
)

// State is the data shared by the control loop (writer) and the telemetry task (reader).
// Every field is an atomic, so readers never observe a torn angle.
type State struct {
	angleBits atomic.Uint64
	sampledAt atomic.Int64
	enabled   atomic.Bool
	stale     atomic.Bool
}

// PublishAngle replaces the fused angle.
func (s *State) PublishAngle(deg float64, at time.Time) {
	s.angleBits.Store(math.Float64bits(deg))
	s.sampledAt.Store(at.UnixNano())
	s.stale.Store(false)
}

// MarkStale flags the published angle as no longer current. The next PublishAngle clears it.
func (s *State) MarkStale() { s.stale.Store(true) }

// Stale reports whether the last sampling cycle failed to produce an angle.
func (s *State) Stale() bool { return s.stale.Load() }

// Angle returns the last published fused angle in degrees.
func (s *State) Angle() float64 { return math.Float64frombits(s.angleBits.Load()) }

// LastSample returns when the angle was last published; zero before the first sample.
func (s *State) LastSample() time.Time {
	ns := s.sampledAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (s *State) SetEnabled(v bool) { s.enabled.Store(v) }
func (s *State) Enabled() bool     { return s.enabled.Load() }
