package boardlink

import (
	"fmt"
	"time"
)

// ChannelState is the lifecycle status of the message channel.
type ChannelState int32

const (
	Disconnected ChannelState = iota
	Connecting
	Connected
)

func (s ChannelState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("ChannelState(%d)", int32(s))
	}
}

func (s ChannelState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Role selects the command vocabulary and the capabilities a board exposes.
type Role string

const (
	RoleChannelDispatch Role = "channel_dispatch"
	RoleSensorFusion    Role = "sensor_fusion"
)

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	return r == RoleChannelDispatch || r == RoleSensorFusion
}

// DefaultIdentity is the handshake token a board of this role announces.
func (r Role) DefaultIdentity() string {
	switch r {
	case RoleSensorFusion:
		return "KneeESP"
	default:
		return "BoardESP"
	}
}

// Vec3 is a 3-axis sample in physical units.
type Vec3 struct{ X, Y, Z float64 }

type EventKind string

const (
	EventState EventKind = "state"
	EventError EventKind = "error"
)

type Event struct {
	Kind       EventKind
	State      ChannelState
	SessionID  string
	OccurredAt time.Time
	Source     string
	Payload    interface{}
}

type EventSubscription interface {
	C() <-chan Event
	Close() error
}

// Snapshot is a point-in-time view of a running board used by the status API.
type Snapshot struct {
	Role            Role         `json:"role"`
	Identity        string       `json:"identity"`
	State           ChannelState `json:"state"`
	SessionID       string       `json:"sessionId,omitempty"`
	Angle           float64      `json:"angle"`
	ActuatorEnabled bool         `json:"actuatorEnabled"`
	Stale           bool         `json:"stale"`
	LastSample      *time.Time   `json:"lastSample,omitempty"`
}
