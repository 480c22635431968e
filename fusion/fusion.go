// Package fusion turns two accelerometer samples into a single joint angle.
package fusion

import (
	"errors"
	"fmt"
	"math"

	"github.com/xmidt-org/talaria/boardlink"
)

// Sensor returns the latest 3-axis acceleration of one physical unit.
type Sensor interface {
	ReadAcceleration() (boardlink.Vec3, error)
}

// MountMatrix rotates a raw sample into the segment frame.
type MountMatrix struct {
	X boardlink.Vec3
	Y boardlink.Vec3
	Z boardlink.Vec3
}

// Identity leaves samples untouched.
var Identity = MountMatrix{
	X: boardlink.Vec3{X: 1},
	Y: boardlink.Vec3{Y: 1},
	Z: boardlink.Vec3{Z: 1},
}

func (m MountMatrix) Apply(v boardlink.Vec3) boardlink.Vec3 {
	return boardlink.Vec3{
		X: m.X.X*v.X + m.X.Y*v.Y + m.X.Z*v.Z,
		Y: m.Y.X*v.X + m.Y.Y*v.Y + m.Y.Z*v.Z,
		Z: m.Z.X*v.X + m.Z.Y*v.Y + m.Z.Z*v.Z,
	}
}

// SegmentAngle is the tilt of one segment in radians, from the X/Y components only.
// A zero or non-finite norm yields 0 and the acos argument is clamped to [-1, 1].
func SegmentAngle(v boardlink.Vec3) float64 {
	norm := math.Hypot(v.X, v.Y)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return 0
	}
	ratio := v.X / norm
	if math.IsNaN(ratio) {
		return 0
	}
	return math.Acos(math.Max(-1, math.Min(1, ratio)))
}

// Fuse sums both segment angles and converts to degrees.
func Fuse(a, b boardlink.Vec3) float64 {
	return (SegmentAngle(a) + SegmentAngle(b)) * (180 / math.Pi)
}

// Engine samples two sensors once per call.
type Engine struct {
	upper, lower   Sensor
	upperM, lowerM MountMatrix
}

// NewEngine builds an engine with identity mount matrices.
func NewEngine(upper, lower Sensor) (*Engine, error) {
	if upper == nil || lower == nil {
		return nil, errors.New("fusion: two sensors required")
	}
	return &Engine{upper: upper, lower: lower, upperM: Identity, lowerM: Identity}, nil
}

// WithMount sets per-sensor mount matrices.
func (e *Engine) WithMount(upper, lower MountMatrix) *Engine {
	e.upperM, e.lowerM = upper, lower
	return e
}

// Sample reads both sensors and returns the fused angle in degrees.
func (e *Engine) Sample() (float64, error) {
	a, err := e.upper.ReadAcceleration()
	if err != nil {
		return 0, fmt.Errorf("upper sensor: %w", err)
	}
	b, err := e.lower.ReadAcceleration()
	if err != nil {
		return 0, fmt.Errorf("lower sensor: %w", err)
	}
	return Fuse(e.upperM.Apply(a), e.lowerM.Apply(b)), nil
}
