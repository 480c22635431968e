package protocol

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/xmidt-org/wrp-go/v3"

	"github.com/xmidt-org/talaria/boardlink"
)

// Envelope wraps structured frames for the peer and unwraps inbound ones.
// Handshake and heartbeat frames are never enveloped.
type Envelope interface {
	Wrap(payload []byte) ([]byte, error)
	Unwrap(frame []byte) ([]byte, error)
}

// Plain sends payloads as-is.
type Plain struct{}

func (Plain) Wrap(payload []byte) ([]byte, error) { return payload, nil }
func (Plain) Unwrap(frame []byte) ([]byte, error) { return frame, nil }

// WRP carries payloads inside WRP simple-event messages in the WRP JSON format, so that
// frames remain text frames on the websocket.
type WRP struct {
	Source      string // e.g. mac:112233445566/boardlink
	Destination string // e.g. event:telemetry/angle
}

const contentTypeJSON = "application/json"

func (w WRP) Wrap(payload []byte) ([]byte, error) {
	msg := wrp.Message{
		Type:            wrp.SimpleEventMessageType,
		Source:          w.Source,
		Destination:     w.Destination,
		TransactionUUID: uuid.NewString(),
		ContentType:     contentTypeJSON,
		Payload:         payload,
	}
	var out []byte
	if err := wrp.NewEncoderBytes(&out, wrp.JSON).Encode(&msg); err != nil {
		return nil, fmt.Errorf("wrp encode: %w", err)
	}
	return out, nil
}

// Unwrap accepts simple events and simple request/response messages and returns their payload.
func (w WRP) Unwrap(frame []byte) ([]byte, error) {
	var msg wrp.Message
	if err := wrp.NewDecoderBytes(frame, wrp.JSON).Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: wrp decode: %v", boardlink.ErrParse, err)
	}
	switch msg.Type {
	case wrp.SimpleEventMessageType, wrp.SimpleRequestResponseMessageType:
	default:
		return nil, fmt.Errorf("%w: unsupported wrp message type %s", boardlink.ErrParse, msg.Type)
	}
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("%w: empty wrp payload", boardlink.ErrParse)
	}
	return msg.Payload, nil
}
