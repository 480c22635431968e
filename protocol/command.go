// Package protocol decodes inbound command frames and encodes outbound telemetry.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/xmidt-org/talaria/boardlink"
)

type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandTurnOn
	CommandTurnOff
	CommandSetActuatorEnabled
)

func (k CommandKind) String() string {
	switch k {
	case CommandTurnOn:
		return "turn_on"
	case CommandTurnOff:
		return "turn_off"
	case CommandSetActuatorEnabled:
		return "set_actuator_enabled"
	default:
		return "unknown"
	}
}

// Command is one decoded inbound frame. Channel is meaningful for TurnOn/TurnOff,
// Enabled for SetActuatorEnabled, Name for Unknown.
type Command struct {
	Kind    CommandKind
	Channel int
	Enabled bool
	Name    string
}

const (
	keyCommand = "command"
	keyLEDID   = "led_id"

	nameTurnOn  = "turn_on"
	nameTurnOff = "turn_off"
)

// Decode parses a command frame using the vocabulary of role.
// Structural problems return an error wrapping ErrParse; commands outside the role's
// vocabulary return an Unknown command together with ErrUnknownCommand.
func Decode(data []byte, role boardlink.Role) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Command{}, fmt.Errorf("%w: %v", boardlink.ErrParse, err)
	}
	if fields == nil {
		return Command{}, fmt.Errorf("%w: not an object", boardlink.ErrParse)
	}

	rawName, ok := fields[keyCommand]
	if !ok {
		return Command{}, fmt.Errorf("%w: missing %q", boardlink.ErrParse, keyCommand)
	}
	var name string
	if isNull(rawName) || json.Unmarshal(rawName, &name) != nil {
		return Command{}, fmt.Errorf("%w: %q must be a string", boardlink.ErrParse, keyCommand)
	}

	id, hasID, err := decodeLEDID(fields)
	if err != nil {
		return Command{}, err
	}

	if name != nameTurnOn && name != nameTurnOff {
		return Command{Kind: CommandUnknown, Name: name}, fmt.Errorf("%w: %q", boardlink.ErrUnknownCommand, name)
	}
	on := name == nameTurnOn

	switch role {
	case boardlink.RoleChannelDispatch:
		if !hasID {
			return Command{}, fmt.Errorf("%w: %q requires %q", boardlink.ErrParse, name, keyLEDID)
		}
		kind := CommandTurnOff
		if on {
			kind = CommandTurnOn
		}
		return Command{Kind: kind, Channel: id}, nil
	case boardlink.RoleSensorFusion:
		if hasID {
			return Command{Kind: CommandUnknown, Name: name}, fmt.Errorf("%w: %q with %q", boardlink.ErrUnknownCommand, name, keyLEDID)
		}
		return Command{Kind: CommandSetActuatorEnabled, Enabled: on}, nil
	default:
		return Command{Kind: CommandUnknown, Name: name}, fmt.Errorf("%w: role %q", boardlink.ErrUnknownCommand, role)
	}
}

func decodeLEDID(fields map[string]json.RawMessage) (int, bool, error) {
	raw, ok := fields[keyLEDID]
	if !ok {
		return 0, false, nil
	}
	var id int
	if isNull(raw) || json.Unmarshal(raw, &id) != nil {
		return 0, false, fmt.Errorf("%w: %q must be an integer", boardlink.ErrParse, keyLEDID)
	}
	return id, true, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// EncodeCommand builds an inbound-style command frame; peers and tests use it.
func EncodeCommand(c Command) ([]byte, error) {
	switch c.Kind {
	case CommandTurnOn, CommandTurnOff:
		return json.Marshal(map[string]interface{}{keyCommand: c.Kind.String(), keyLEDID: c.Channel})
	case CommandSetActuatorEnabled:
		name := nameTurnOff
		if c.Enabled {
			name = nameTurnOn
		}
		return json.Marshal(map[string]interface{}{keyCommand: name})
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", boardlink.ErrInvalidParameter, c.Kind)
	}
}

// TelemetryFrame is one outbound measurement.
type TelemetryFrame struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

// FieldAngle is the only telemetry field currently emitted.
const FieldAngle = "angle"

// EncodeTelemetry serializes f as {"field":...,"value":...}.
func EncodeTelemetry(f TelemetryFrame) ([]byte, error) {
	if f.Field == "" {
		return nil, fmt.Errorf("%w: empty telemetry field", boardlink.ErrInvalidParameter)
	}
	if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return nil, fmt.Errorf("%w: non-finite telemetry value", boardlink.ErrInvalidParameter)
	}
	return json.Marshal(f)
}
