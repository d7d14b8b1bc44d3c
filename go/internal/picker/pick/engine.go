package pick

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
	"github.com/mcdev12/fingerpicker/go/internal/picker/registry"
	"github.com/rs/zerolog/log"
)

var ErrNotEnoughContestants = errors.New("at least two contestants are required to pick")
var ErrUnknownMode = errors.New("unknown game mode")

const minContestants = 2

// Rand is the randomness a pick consumes. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Outcome is the result of one round. Winners is never empty.
type Outcome struct {
	RoundID      uuid.UUID
	Mode         Mode
	Winners      []registry.ID
	WinningColor color.RGB
	// Teams holds the group split (team A, team B); empty in single mode.
	Teams    [2][]registry.ID
	PickedAt time.Time
}

// IsWinner reports whether id is among the winners.
func (o Outcome) IsWinner(id registry.ID) bool {
	for _, w := range o.Winners {
		if w == id {
			return true
		}
	}
	return false
}

// TeamColors are the fixed colors assigned by the group split.
type TeamColors struct {
	A color.RGB `yaml:"team_a"`
	B color.RGB `yaml:"team_b"`
}

// DefaultTeamColors returns cyan for team A and magenta for team B.
func DefaultTeamColors() TeamColors {
	return TeamColors{A: color.Cyan, B: color.Magenta}
}

// Strategy decides a round for one mode.
type Strategy interface {
	Pick(reg *registry.Registry, rng Rand) (Outcome, error)
}

// SingleStrategy draws one uniformly random winner.
type SingleStrategy struct{}

// Pick implements Strategy.
func (SingleStrategy) Pick(reg *registry.Registry, rng Rand) (Outcome, error) {
	ids := reg.IDs()
	if len(ids) < minContestants {
		return Outcome{}, ErrNotEnoughContestants
	}

	winner := ids[rng.Intn(len(ids))]
	c, _ := reg.Get(winner)
	return Outcome{
		Mode:         ModeSinglePlayer,
		Winners:      []registry.ID{winner},
		WinningColor: c.Color,
	}, nil
}

// GroupStrategy shuffles contestants into two teams and picks a winning team.
type GroupStrategy struct {
	Colors TeamColors
}

// Pick implements Strategy. Team colors overwrite each contestant's display
// color for the rest of the round.
func (s GroupStrategy) Pick(reg *registry.Registry, rng Rand) (Outcome, error) {
	ids := reg.IDs()
	if len(ids) < minContestants {
		return Outcome{}, ErrNotEnoughContestants
	}

	Shuffle(ids, rng)
	mid := len(ids) / 2
	teamA := append([]registry.ID(nil), ids[:mid]...)
	teamB := append([]registry.ID(nil), ids[mid:]...)

	for _, id := range teamA {
		reg.AssignTeam(id, s.Colors.A)
	}
	for _, id := range teamB {
		reg.AssignTeam(id, s.Colors.B)
	}

	out := Outcome{
		Mode:  ModeGroup,
		Teams: [2][]registry.ID{teamA, teamB},
	}
	if rng.Intn(2) == 0 {
		out.Winners = append([]registry.ID(nil), teamA...)
		out.WinningColor = s.Colors.A
	} else {
		out.Winners = append([]registry.ID(nil), teamB...)
		out.WinningColor = s.Colors.B
	}
	return out, nil
}

// Shuffle permutes ids in place with Fisher-Yates using rng.
func Shuffle(ids []registry.ID, rng Rand) {
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// Engine picks winners using the strategy registered for the round's mode.
type Engine struct {
	clock      clockwork.Clock
	rng        Rand
	strategies map[Mode]Strategy
}

// NewEngine creates an engine with the single and group strategies.
func NewEngine(clock clockwork.Clock, rng Rand, teams TeamColors) *Engine {
	return &Engine{
		clock: clock,
		rng:   rng,
		strategies: map[Mode]Strategy{
			ModeSinglePlayer: SingleStrategy{},
			ModeGroup:        GroupStrategy{Colors: teams},
		},
	}
}

// Pick decides the round. It fails with ErrNotEnoughContestants when fewer
// than two contestants are registered, leaving the registry untouched.
func (e *Engine) Pick(reg *registry.Registry, mode Mode) (Outcome, error) {
	strat, ok := e.strategies[mode]
	if !ok {
		return Outcome{}, ErrUnknownMode
	}

	out, err := strat.Pick(reg, e.rng)
	if err != nil {
		return Outcome{}, err
	}
	out.RoundID = uuid.New()
	out.PickedAt = e.clock.Now()

	log.Debug().
		Str("round_id", out.RoundID.String()).
		Str("mode", mode.Key()).
		Int("contestants", reg.Count()).
		Int("winners", len(out.Winners)).
		Msg("round picked")
	return out, nil
}
