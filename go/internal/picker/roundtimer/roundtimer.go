package roundtimer

import (
	"time"

	"github.com/mcdev12/fingerpicker/go/internal/picker/schedule"
	"github.com/rs/zerolog/log"
)

const (
	TokenExpiry          schedule.Token = "expiry"
	TokenFeedbackStart   schedule.Token = "feedback_start"
	TokenProgressiveTick schedule.Token = "progressive_tick"
)

const (
	DefaultCountdown     = 5000 * time.Millisecond
	DefaultFeedbackDelay = 1000 * time.Millisecond

	tickMaxDelay = 500 * time.Millisecond
	tickSpan     = 450 * time.Millisecond
	tickMinDelay = 50 * time.Millisecond

	minContestants = 2
)

// Config holds the round timings.
type Config struct {
	Countdown     time.Duration
	FeedbackDelay time.Duration
	// Progressive enables the self-rescheduling tick after feedback starts.
	Progressive bool
}

// DefaultConfig returns the timings the game ships with.
func DefaultConfig() Config {
	return Config{
		Countdown:     DefaultCountdown,
		FeedbackDelay: DefaultFeedbackDelay,
		Progressive:   true,
	}
}

// Hooks are invoked when the corresponding action fires. Nil hooks are skipped.
type Hooks struct {
	OnExpiry        func()
	OnFeedbackStart func()
	OnTick          func()
}

// Timer owns the three deferred actions of a round: countdown expiry, the
// feedback start, and the progressive tick.
type Timer struct {
	sched *schedule.Scheduler
	cfg   Config
	hooks Hooks

	armedAt     time.Time
	tickStarted time.Time
}

// New creates a round timer on sched.
func New(sched *schedule.Scheduler, cfg Config, hooks Hooks) *Timer {
	return &Timer{sched: sched, cfg: cfg, hooks: hooks}
}

// Config returns the timings in use.
func (t *Timer) Config() Config {
	return t.cfg
}

// ScheduleRound cancels any pending actions, then arms expiry and feedback
// start when there are enough contestants for a round. It reports whether a
// round was armed.
func (t *Timer) ScheduleRound(contestants int) bool {
	t.CancelAll()
	if contestants < minContestants {
		return false
	}

	t.armedAt = t.sched.Clock().Now()
	t.sched.Schedule(TokenExpiry, t.cfg.Countdown, t.expire)
	t.sched.Schedule(TokenFeedbackStart, t.cfg.FeedbackDelay, t.startFeedback)

	log.Debug().
		Int("contestants", contestants).
		Dur("countdown", t.cfg.Countdown).
		Msg("round armed")
	return true
}

// CancelAll cancels all three actions. Idempotent.
func (t *Timer) CancelAll() {
	t.sched.Cancel(TokenExpiry)
	t.sched.Cancel(TokenFeedbackStart)
	t.sched.Cancel(TokenProgressiveTick)
	t.armedAt = time.Time{}
	t.tickStarted = time.Time{}
}

// Armed reports whether the countdown is running.
func (t *Timer) Armed() bool {
	return t.sched.Pending(TokenExpiry)
}

// Remaining returns the time left on the countdown, or zero when not armed.
func (t *Timer) Remaining() time.Duration {
	deadline, ok := t.sched.Deadline(TokenExpiry)
	if !ok {
		return 0
	}
	remaining := deadline.Sub(t.sched.Clock().Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress returns how far the countdown has run, from 0 to 1. It reports
// false when no countdown is armed.
func (t *Timer) Progress() (float64, bool) {
	if !t.Armed() || t.cfg.Countdown <= 0 {
		return 0, false
	}
	elapsed := t.sched.Clock().Since(t.armedAt)
	progress := float64(elapsed) / float64(t.cfg.Countdown)
	if progress > 1 {
		progress = 1
	}
	return progress, true
}

func (t *Timer) expire() {
	t.sched.Cancel(TokenProgressiveTick)
	t.armedAt = time.Time{}
	t.tickStarted = time.Time{}
	if t.hooks.OnExpiry != nil {
		t.hooks.OnExpiry()
	}
}

func (t *Timer) startFeedback() {
	if t.hooks.OnFeedbackStart != nil {
		t.hooks.OnFeedbackStart()
	}
	if !t.cfg.Progressive {
		return
	}
	t.tickStarted = t.sched.Clock().Now()
	t.tick()
}

// tick fires the tick hook and reschedules itself until the feedback window
// has elapsed.
func (t *Timer) tick() {
	window := t.cfg.Countdown - t.cfg.FeedbackDelay
	remaining := window - t.sched.Clock().Since(t.tickStarted)
	if remaining <= 0 {
		return
	}
	if t.hooks.OnTick != nil {
		t.hooks.OnTick()
	}
	t.sched.Schedule(TokenProgressiveTick, NextTickDelay(remaining, window), t.tick)
}

// NextTickDelay returns the delay before the next progressive tick:
// max(50ms, 500ms - 450ms*progress) with progress = 1 - remaining/window.
func NextTickDelay(remaining, window time.Duration) time.Duration {
	if window <= 0 {
		return tickMinDelay
	}
	progress := 1 - float64(remaining)/float64(window)
	delay := tickMaxDelay - time.Duration(float64(tickSpan)*progress)
	if delay < tickMinDelay {
		return tickMinDelay
	}
	return delay
}
