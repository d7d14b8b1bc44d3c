package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TableEvent is the envelope for everything the gateway pushes to clients.
type TableEvent struct {
	ID        string          `json:"id"`
	TableID   string          `json:"table_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType is the type of a TableEvent.
type EventType string

const (
	EventTypeState         EventType = "state"
	EventTypeFeedback      EventType = "feedback"
	EventTypeRoundFinished EventType = "round_finished"
	EventTypeModeChanged   EventType = "mode_changed"
	EventTypeError         EventType = "error"
)

// MessageType is the type of a message sent by a client.
type MessageType string

const (
	MessageTouchBegin  MessageType = "touch_begin"
	MessageTouchMove   MessageType = "touch_move"
	MessageTouchEnd    MessageType = "touch_end"
	MessageTouchCancel MessageType = "touch_cancel"
	MessageSetMode     MessageType = "set_mode"
	MessageReset       MessageType = "reset"
	MessageViewport    MessageType = "viewport"
)

// ClientMessage is a command from a client. PointerID is the client's own
// pointer id; the gateway namespaces it per connection. Width and Height
// describe the client's screen in a viewport message.
type ClientMessage struct {
	Type      MessageType `json:"type"`
	PointerID int64       `json:"pointer_id,omitempty"`
	X         float64     `json:"x,omitempty"`
	Y         float64     `json:"y,omitempty"`
	Mode      string      `json:"mode,omitempty"`
	Width     float64     `json:"width,omitempty"`
	Height    float64     `json:"height,omitempty"`
}

// ErrorPayload is sent back to a client whose message was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}

func newEvent(tableID uuid.UUID, t EventType, at time.Time, payload interface{}) (*TableEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &TableEvent{
		ID:        uuid.New().String(),
		TableID:   tableID.String(),
		Type:      t,
		Timestamp: at,
		Data:      data,
	}, nil
}
