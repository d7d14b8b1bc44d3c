package picker

import (
	"fmt"
	"time"

	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
	"github.com/mcdev12/fingerpicker/go/internal/picker/pick"
	"github.com/mcdev12/fingerpicker/go/internal/picker/registry"
)

type State int

const (
	StateIdle State = iota
	StateActive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ContestantView is the read-only rendering view of one finger.
type ContestantView struct {
	ID       registry.ID `json:"id"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Color    color.RGB   `json:"color"`
	JoinedAt time.Time   `json:"joined_at"`
	Team     bool        `json:"team,omitempty"`
	Winner   bool        `json:"winner,omitempty"`
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	State             State            `json:"state"`
	Mode              string           `json:"mode"`
	ModeName          string           `json:"mode_name"`
	Contestants       []ContestantView `json:"contestants"`
	Winners           []registry.ID    `json:"winners,omitempty"`
	WinningColor      *color.RGB       `json:"winning_color,omitempty"`
	RoundID           string           `json:"round_id,omitempty"`
	Arrows            []Arrow          `json:"arrows,omitempty"`
	CountdownArmed    bool             `json:"countdown_armed"`
	CountdownProgress float64          `json:"countdown_progress"`
	RemainingMs       int64            `json:"remaining_ms"`
	TakenAt           time.Time        `json:"taken_at"`
}

func (m *StateMachine) State() State {
	return m.state
}

func (m *StateMachine) IsFinished() bool {
	return m.state == StateFinished
}

func (m *StateMachine) Mode() pick.Mode {
	return m.mode
}

// Options returns the options the machine was built with.
func (m *StateMachine) Options() Options {
	return m.opts
}

// Contestants returns the fingers on screen in join order.
func (m *StateMachine) Contestants() []ContestantView {
	all := m.registry.Contestants()
	out := make([]ContestantView, 0, len(all))
	for _, c := range all {
		out = append(out, ContestantView{
			ID:       c.ID,
			X:        c.Position.X,
			Y:        c.Position.Y,
			Color:    c.Color,
			JoinedAt: c.JoinedAt,
			Team:     c.TeamColor != nil,
			Winner:   m.outcome != nil && m.outcome.IsWinner(c.ID),
		})
	}
	return out
}

// Winners returns the winners of the finished round. It reports false until
// a round is decided.
func (m *StateMachine) Winners() ([]registry.ID, bool) {
	if m.outcome == nil {
		return nil, false
	}
	return append([]registry.ID(nil), m.outcome.Winners...), true
}

func (m *StateMachine) WinningColor() (color.RGB, bool) {
	if m.outcome == nil {
		return color.RGB{}, false
	}
	return m.outcome.WinningColor, true
}

func (m *StateMachine) Outcome() (pick.Outcome, bool) {
	if m.outcome == nil {
		return pick.Outcome{}, false
	}
	return *m.outcome, true
}

// CountdownProgress reports how far the running countdown is, from 0 to 1.
func (m *StateMachine) CountdownProgress() (float64, bool) {
	return m.timer.Progress()
}

// Remaining returns the time left on the countdown.
func (m *StateMachine) Remaining() time.Duration {
	return m.timer.Remaining()
}

func (m *StateMachine) Snapshot() Snapshot {
	progress, armed := m.timer.Progress()
	snap := Snapshot{
		State:             m.state,
		Mode:              m.mode.Key(),
		ModeName:          m.mode.String(),
		Contestants:       m.Contestants(),
		CountdownArmed:    armed,
		CountdownProgress: progress,
		RemainingMs:       m.timer.Remaining().Milliseconds(),
		TakenAt:           m.clock.Now(),
	}
	if m.outcome != nil {
		wc := m.outcome.WinningColor
		snap.Winners = append([]registry.ID(nil), m.outcome.Winners...)
		snap.WinningColor = &wc
		snap.RoundID = m.outcome.RoundID.String()
		if m.viewWidth > 0 {
			snap.Arrows = m.WinnerArrows(m.viewWidth, m.viewHeight, m.opts.ArrowRadius)
		}
	}
	return snap
}
