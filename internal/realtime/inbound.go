package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Inbound event names sent by clients.
const (
	InboundJoinNotifications = "join-notifications"
	InboundJoinChatRoom      = "join-chat-room"
	InboundLeaveChatRoom     = "leave-chat-room"
	InboundJoinPresenceRoom  = "join-presence-room"
	InboundLeavePresenceRoom = "leave-presence-room"
	InboundTypingStart       = "typing-start"
	InboundTypingStop        = "typing-stop"
)

// ErrInvalidFrame is returned for frames that fail schema validation or decoding.
var ErrInvalidFrame = errors.New("invalid inbound frame")

const frameSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["event", "data"],
  "properties": {
    "event": {
      "enum": [
        "join-notifications",
        "join-chat-room",
        "leave-chat-room",
        "join-presence-room",
        "leave-presence-room",
        "typing-start",
        "typing-stop"
      ]
    },
    "data": {
      "oneOf": [
        {"type": "string", "minLength": 1, "maxLength": 128, "pattern": "^[A-Za-z0-9._@+-]+$"},
        {"type": "integer", "minimum": 0}
      ]
    }
  }
}`

var inboundSchema = jsonschema.MustCompileString("inbound-frame.json", frameSchema)

// InboundEvent is the closed set of client-to-gateway events.
type InboundEvent interface {
	inbound()
}

// JoinNotifications subscribes to the caller's private notification channel.
type JoinNotifications struct{ UserID string }

// JoinChatRoom subscribes to a chat room channel.
type JoinChatRoom struct{ RoomID string }

// LeaveChatRoom unsubscribes from a chat room channel.
type LeaveChatRoom struct{ RoomID string }

// JoinPresenceRoom enters a presence room.
type JoinPresenceRoom struct{ RoomID string }

// LeavePresenceRoom exits a presence room.
type LeavePresenceRoom struct{ RoomID string }

// StartTyping relays a typing indicator to a joined chat room.
type StartTyping struct{ RoomID string }

// StopTyping clears a typing indicator in a joined chat room.
type StopTyping struct{ RoomID string }

func (JoinNotifications) inbound() {}
func (JoinChatRoom) inbound()      {}
func (LeaveChatRoom) inbound()     {}
func (JoinPresenceRoom) inbound()  {}
func (LeavePresenceRoom) inbound() {}
func (StartTyping) inbound()       {}
func (StopTyping) inbound()        {}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeInbound validates a raw client frame and maps it onto its variant.
func DecodeInbound(frame []byte) (InboundEvent, error) {
	decoder := json.NewDecoder(bytes.NewReader(frame))
	decoder.UseNumber()

	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if err := inboundSchema.Validate(document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	var parsed inboundFrame
	if err := json.Unmarshal(frame, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	argument, err := decodeArgument(parsed.Data)
	if err != nil {
		return nil, err
	}

	switch parsed.Event {
	case InboundJoinNotifications:
		return JoinNotifications{UserID: argument}, nil
	case InboundJoinChatRoom:
		return JoinChatRoom{RoomID: argument}, nil
	case InboundLeaveChatRoom:
		return LeaveChatRoom{RoomID: argument}, nil
	case InboundJoinPresenceRoom:
		return JoinPresenceRoom{RoomID: argument}, nil
	case InboundLeavePresenceRoom:
		return LeavePresenceRoom{RoomID: argument}, nil
	case InboundTypingStart:
		return StartTyping{RoomID: argument}, nil
	case InboundTypingStop:
		return StopTyping{RoomID: argument}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidFrame, parsed.Event)
	}
}

// decodeArgument normalises string and integer arguments to their string form.
func decodeArgument(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		return strings.TrimSpace(value), nil
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	value, err := number.Int64()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return fmt.Sprintf("%d", value), nil
}
