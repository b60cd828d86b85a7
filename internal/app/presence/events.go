package presence

import (
	"encoding/json"
	"fmt"
)

// EventType names a frame on the websocket protocol.
type EventType string

// Client -> server.
const (
	EventAuthenticate EventType = "authenticate"
	EventJoinRoom     EventType = "join_room"
	EventLeaveRoom    EventType = "leave_room"
	EventTyping       EventType = "typing"
	EventSendMessage  EventType = "send_message"
)

// Server -> client.
const (
	EventAuthenticated   EventType = "authenticated"
	EventMessageReceived EventType = "message_received"
	EventTypingStatus    EventType = "typing_status"
	EventMessageAck      EventType = "message_ack"
	EventError           EventType = "error"
)

// Event is the {type, payload} envelope shared by both directions. Payload is kept raw so an
// event survives a trip across the bus byte for byte.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event of type t.
func NewEvent(t EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{Type: t, Payload: data}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

type TypingStatusPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
