package picker

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
	"github.com/mcdev12/fingerpicker/go/internal/picker/feedback"
	"github.com/mcdev12/fingerpicker/go/internal/picker/pick"
	"github.com/mcdev12/fingerpicker/go/internal/picker/registry"
	"github.com/mcdev12/fingerpicker/go/internal/picker/roundtimer"
	"github.com/mcdev12/fingerpicker/go/internal/picker/schedule"
)

var ErrNilClock = errors.New("picker: a clock is required")
var ErrNilRand = errors.New("picker: a random source is required")
var ErrNilScheduler = errors.New("picker: a scheduler is required")
var ErrModeUnavailable = errors.New("game mode is not enabled")

const defaultWinPulse = 500 * time.Millisecond

// Rand is the random source shared by color allocation and picking.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Options configure a StateMachine.
type Options struct {
	Mode          pick.Mode
	Countdown     time.Duration
	FeedbackDelay time.Duration
	WinPulse      time.Duration

	// ArrowRadius sizes the winner arrows; it matches the drawn finger circle.
	ArrowRadius float64

	Colors       color.Options
	TeamColors   pick.TeamColors
	NeutralColor color.RGB

	EnableTeamMode            bool
	EnableProgressiveFeedback bool
	EnableWinnerBurst         bool
}

// DefaultOptions returns the full-featured game.
func DefaultOptions() Options {
	return Options{
		Mode:                      pick.ModeSinglePlayer,
		Countdown:                 roundtimer.DefaultCountdown,
		FeedbackDelay:             roundtimer.DefaultFeedbackDelay,
		WinPulse:                  defaultWinPulse,
		ArrowRadius:               DefaultArrowRadius,
		Colors:                    color.DefaultOptions(),
		TeamColors:                pick.DefaultTeamColors(),
		NeutralColor:              color.LightGray,
		EnableTeamMode:            true,
		EnableProgressiveFeedback: true,
		EnableWinnerBurst:         true,
	}
}

// StateMachine is the picker core: it tracks fingers, runs the countdown and
// decides rounds. It is not safe for concurrent use; touch events, timer
// actions and queries must all arrive on the scheduler's thread.
type StateMachine struct {
	clock    clockwork.Clock
	sched    *schedule.Scheduler
	opts     Options
	feedback feedback.Collaborator

	registry *registry.Registry
	timer    *roundtimer.Timer
	engine   *pick.Engine

	state      State
	mode       pick.Mode
	outcome    *pick.Outcome
	toneActive bool

	viewWidth  float64
	viewHeight float64

	modeObservers   []func(pick.Mode)
	finishObservers []func(pick.Outcome)
}

// New builds a state machine. The clock, random source and scheduler are
// required; a nil collaborator drops all feedback requests.
func New(clock clockwork.Clock, rng Rand, sched *schedule.Scheduler, fb feedback.Collaborator, opts Options) (*StateMachine, error) {
	switch {
	case clock == nil:
		return nil, ErrNilClock
	case rng == nil:
		return nil, ErrNilRand
	case sched == nil:
		return nil, ErrNilScheduler
	}
	if fb == nil {
		fb = feedback.Nop{}
	}
	if opts.WinPulse <= 0 {
		opts.WinPulse = defaultWinPulse
	}
	if opts.ArrowRadius <= 0 {
		opts.ArrowRadius = DefaultArrowRadius
	}

	m := &StateMachine{
		clock:    clock,
		sched:    sched,
		opts:     opts,
		feedback: fb,
		registry: registry.New(clock, color.NewAllocator(rng, opts.Colors)),
		engine:   pick.NewEngine(clock, rng, opts.TeamColors),
		state:    StateIdle,
	}
	m.timer = roundtimer.New(sched, roundtimer.Config{
		Countdown:     opts.Countdown,
		FeedbackDelay: opts.FeedbackDelay,
		Progressive:   opts.EnableProgressiveFeedback,
	}, roundtimer.Hooks{
		OnExpiry:        m.onExpiry,
		OnFeedbackStart: m.onFeedbackStart,
		OnTick:          m.feedback.HapticTick,
	})

	if err := m.checkMode(opts.Mode); err != nil {
		return nil, fmt.Errorf("initial mode: %w", err)
	}
	m.applyMode(opts.Mode)
	return m, nil
}

// OnTouchBegin registers a new finger. New fingers are ignored while a
// finished round is on screen.
func (m *StateMachine) OnTouchBegin(id registry.ID, x, y float64) {
	if m.state == StateFinished {
		log.Debug().Int64("touch_id", int64(id)).Msg("ignoring touch on finished round")
		return
	}
	if _, ok := m.registry.Add(id, registry.Point{X: x, Y: y}); !ok {
		return
	}
	m.state = StateActive
	m.rearm()
}

// OnTouchMove updates a finger's position.
func (m *StateMachine) OnTouchMove(id registry.ID, x, y float64) {
	if m.state == StateFinished {
		return
	}
	m.registry.Move(id, registry.Point{X: x, Y: y})
}

// OnTouchEnd releases a finger. On a finished round, releasing a winner
// starts a new game while losers just leave.
func (m *StateMachine) OnTouchEnd(id registry.ID) {
	if m.state == StateFinished {
		if m.outcome != nil && m.outcome.IsWinner(id) {
			log.Debug().Int64("touch_id", int64(id)).Msg("winner released, resetting")
			m.Reset()
			return
		}
		m.registry.Remove(id)
		return
	}

	if !m.registry.Remove(id) {
		return
	}
	if m.registry.Count() == 0 {
		m.state = StateIdle
	}
	m.rearm()
}

// OnTouchCancel handles a platform interruption: the game resets.
func (m *StateMachine) OnTouchCancel() {
	m.Reset()
}

// Reset cancels timers, clears every finger and the outcome, and returns to
// Idle. Calling it repeatedly is harmless.
func (m *StateMachine) Reset() {
	m.timer.CancelAll()
	m.stopTone()
	m.registry.Clear()
	m.outcome = nil
	m.state = StateIdle
}

// SetMode resets the game, switches mode and notifies mode observers.
func (m *StateMachine) SetMode(mode pick.Mode) error {
	if err := m.checkMode(mode); err != nil {
		return err
	}
	m.Reset()
	m.applyMode(mode)
	for _, fn := range m.modeObservers {
		fn(mode)
	}
	log.Debug().Str("mode", mode.Key()).Msg("game mode changed")
	return nil
}

// OnModeChanged registers an observer and immediately calls it with the
// current mode so a UI can render it right away.
func (m *StateMachine) OnModeChanged(fn func(pick.Mode)) {
	m.modeObservers = append(m.modeObservers, fn)
	fn(m.mode)
}

// OnRoundFinished registers an observer called after each decided round.
func (m *StateMachine) OnRoundFinished(fn func(pick.Outcome)) {
	m.finishObservers = append(m.finishObservers, fn)
}

func (m *StateMachine) checkMode(mode pick.Mode) error {
	switch mode {
	case pick.ModeSinglePlayer:
		return nil
	case pick.ModeGroup:
		if !m.opts.EnableTeamMode {
			return ErrModeUnavailable
		}
		return nil
	default:
		return pick.ErrUnknownMode
	}
}

func (m *StateMachine) applyMode(mode pick.Mode) {
	m.mode = mode
	if mode == pick.ModeGroup {
		m.registry.SetNeutral(&m.opts.NeutralColor)
	} else {
		m.registry.SetNeutral(nil)
	}
}

// rearm restarts the countdown after the finger count changed.
func (m *StateMachine) rearm() {
	m.stopTone()
	m.timer.ScheduleRound(m.registry.Count())
}

func (m *StateMachine) stopTone() {
	if !m.toneActive {
		return
	}
	m.toneActive = false
	m.feedback.ToneStop()
}

func (m *StateMachine) onFeedbackStart() {
	m.toneActive = true
	m.feedback.ToneStart(m.opts.Countdown - m.opts.FeedbackDelay)
}

func (m *StateMachine) onExpiry() {
	m.stopTone()
	if m.state != StateActive || m.registry.Count() < 2 {
		log.Debug().Int("contestants", m.registry.Count()).Msg("countdown expired without enough contestants")
		return
	}

	out, err := m.engine.Pick(m.registry, m.mode)
	if err != nil {
		log.Warn().Err(err).Msg("pick failed")
		return
	}
	m.outcome = &out
	m.state = StateFinished

	m.feedback.HapticPulse(m.opts.WinPulse)
	m.feedback.Fanfare()
	if m.opts.EnableWinnerBurst {
		for _, id := range out.Winners {
			if c, ok := m.registry.Get(id); ok {
				m.feedback.ParticleBurst(c.Position.X, c.Position.Y, out.WinningColor)
			}
		}
	}

	log.Info().
		Str("round_id", out.RoundID.String()).
		Str("mode", out.Mode.Key()).
		Int("contestants", m.registry.Count()).
		Int("winners", len(out.Winners)).
		Msg("round finished")

	for _, fn := range m.finishObservers {
		fn(out)
	}
}
