package pick

import (
	"fmt"
	"strings"
)

// Mode selects how a round is decided.
type Mode int

const (
	// ModeSinglePlayer picks exactly one winner.
	ModeSinglePlayer Mode = iota
	// ModeGroup splits contestants into two teams and picks a winning team.
	ModeGroup
)

// Modes lists every mode in menu order.
var Modes = []Mode{ModeSinglePlayer, ModeGroup}

// String returns the display name shown in the mode menu.
func (m Mode) String() string {
	switch m {
	case ModeSinglePlayer:
		return "Starting Player"
	case ModeGroup:
		return "Group"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Key returns the stable identifier used in config files and wire messages.
func (m Mode) Key() string {
	switch m {
	case ModeSinglePlayer:
		return "single"
	case ModeGroup:
		return "group"
	default:
		return ""
	}
}

// ParseMode accepts a mode key or display name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Modes {
		if needle == m.Key() || needle == strings.ToLower(m.String()) {
			return m, nil
		}
	}
	switch needle {
	case "single_player", "singleplayer", "starting_player":
		return ModeSinglePlayer, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	key := m.Key()
	if key == "" {
		return nil, fmt.Errorf("unknown game mode %d", int(m))
	}
	return []byte(key), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
