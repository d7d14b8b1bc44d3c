package simulate

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/fingerpicker/go/internal/picker"
	"github.com/mcdev12/fingerpicker/go/internal/picker/events"
	"github.com/mcdev12/fingerpicker/go/internal/picker/feedback"
	"github.com/mcdev12/fingerpicker/go/internal/picker/pick"
	"github.com/mcdev12/fingerpicker/go/internal/picker/registry"
	"github.com/mcdev12/fingerpicker/go/internal/picker/schedule"
	"github.com/mcdev12/fingerpicker/go/internal/tone"
)

var ErrUnknownAction = errors.New("unknown step action")

// step is the resolution the fake clock is advanced at.
const step = 10 * time.Millisecond

// Action is what a script step does to the table.
type Action string

const (
	ActionBegin  Action = "begin"
	ActionMove   Action = "move"
	ActionEnd    Action = "end"
	ActionCancel Action = "cancel"
	ActionMode   Action = "mode"
	ActionReset  Action = "reset"
)

// Step is one timed input, At measured from the start of the run.
type Step struct {
	At     time.Duration `yaml:"at"`
	Action Action        `yaml:"action"`
	ID     registry.ID   `yaml:"id,omitempty"`
	X      float64       `yaml:"x,omitempty"`
	Y      float64       `yaml:"y,omitempty"`
	Mode   string        `yaml:"mode,omitempty"`
}

// Script is a named sequence of steps. Tail is how long to keep running after
// the last step; zero means one countdown plus a second.
type Script struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Steps       []Step        `yaml:"steps"`
	Tail        time.Duration `yaml:"tail"`
}

// Entry is a feedback request and when it was made.
type Entry struct {
	At      time.Duration  `json:"at"`
	Request events.Request `json:"request"`
}

// Result is what a run produced.
type Result struct {
	Script   string
	Seed     int64
	Elapsed  time.Duration
	Timeline []Entry
	Outcomes []pick.Outcome
	Final    picker.Snapshot
	// Tone holds the countdown tone as it would have been heard, silence
	// between tones included.
	Tone *tone.BufferSink
}

// Count returns how many requests of type t the run made.
func (r Result) Count(t events.RequestType) int {
	n := 0
	for _, e := range r.Timeline {
		if e.Request.Type == t {
			n++
		}
	}
	return n
}

// LoadScript reads a YAML script file.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("failed to parse script: %w", err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Run replays script against a fresh state machine on a fake clock.
func Run(script Script, opts picker.Options, seed int64) (Result, error) {
	clock := clockwork.NewFakeClock()
	origin := clock.Now()
	sched := schedule.New(clock)

	res := Result{Script: script.Name, Seed: seed, Tone: tone.NewBufferSink()}
	record := feedback.Func(func(req events.Request) {
		res.Timeline = append(res.Timeline, Entry{At: clock.Now().Sub(origin), Request: req})
	})
	track := &toneTrack{clock: clock, origin: origin, sink: res.Tone}
	logger := log.With().Str("script", script.Name).Logger()

	m, err := picker.New(clock, rand.New(rand.NewSource(seed)), sched,
		feedback.Fanout{record, track, feedback.NewLogger(logger)}, opts)
	if err != nil {
		return Result{}, fmt.Errorf("create state machine: %w", err)
	}
	m.OnRoundFinished(func(out pick.Outcome) {
		res.Outcomes = append(res.Outcomes, out)
	})

	steps := make([]Step, len(script.Steps))
	copy(steps, script.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })

	advanceTo := func(target time.Duration) {
		for now := clock.Now().Sub(origin); now < target; now = clock.Now().Sub(origin) {
			clock.Advance(min(step, target-now))
			sched.RunDue()
		}
	}

	for i, s := range steps {
		advanceTo(s.At)
		if err := apply(m, s); err != nil {
			return Result{}, fmt.Errorf("step %d (%s at %s): %w", i, s.Action, s.At, err)
		}
	}

	tail := script.Tail
	if tail <= 0 {
		tail = m.Options().Countdown + time.Second
	}
	var last time.Duration
	if len(steps) > 0 {
		last = steps[len(steps)-1].At
	}
	advanceTo(last + tail)

	res.Elapsed = clock.Now().Sub(origin)
	res.Final = m.Snapshot()
	if err := track.finish(); err != nil {
		return Result{}, fmt.Errorf("render tone: %w", err)
	}

	logger.Debug().
		Int("requests", len(res.Timeline)).
		Int("rounds", len(res.Outcomes)).
		Dur("elapsed", res.Elapsed).
		Msg("script finished")
	return res, nil
}

func apply(m *picker.StateMachine, s Step) error {
	switch s.Action {
	case ActionBegin:
		m.OnTouchBegin(s.ID, s.X, s.Y)
	case ActionMove:
		m.OnTouchMove(s.ID, s.X, s.Y)
	case ActionEnd:
		m.OnTouchEnd(s.ID)
	case ActionCancel:
		m.OnTouchCancel()
	case ActionReset:
		m.Reset()
	case ActionMode:
		mode, err := pick.ParseMode(s.Mode)
		if err != nil {
			return err
		}
		return m.SetMode(mode)
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, s.Action)
	}
	return nil
}
