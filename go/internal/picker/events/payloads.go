package events

import (
	"time"

	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
)

// Payload types shared between the picker, the feedback publishers and the gateway.

// RequestType names a feedback request the core emits to its collaborators.
type RequestType string

const (
	RequestHapticPulse   RequestType = "HapticPulse"
	RequestHapticTick    RequestType = "HapticTick"
	RequestToneStart     RequestType = "ToneStart"
	RequestToneStop      RequestType = "ToneStop"
	RequestFanfare       RequestType = "Fanfare"
	RequestParticleBurst RequestType = "ParticleBurst"
)

// Request is one feedback request. Only the fields relevant to Type are set.
type Request struct {
	Type       RequestType `json:"type"`
	DurationMs int64       `json:"duration_ms,omitempty"`
	X          float64     `json:"x,omitempty"`
	Y          float64     `json:"y,omitempty"`
	Color      *color.RGB  `json:"color,omitempty"`
}

// Duration returns DurationMs as a time.Duration.
func (r Request) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// RoundFinishedPayload is published when a round is decided.
type RoundFinishedPayload struct {
	RoundID      string    `json:"round_id"`
	Mode         string    `json:"mode"`
	Winners      []int64   `json:"winners"`
	WinningColor color.RGB `json:"winning_color"`
	Contestants  int       `json:"contestants"`
	FinishedAt   time.Time `json:"finished_at"`
}

// ModeChangedPayload is published when the game mode changes.
type ModeChangedPayload struct {
	Mode        string    `json:"mode"`
	DisplayName string    `json:"display_name"`
	ChangedAt   time.Time `json:"changed_at"`
}
