package schedule

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Token names a deferred action. Scheduling a token that is already pending
// replaces it.
type Token string

const idlePollDuration = 5 * time.Second

type action struct {
	token Token
	at    time.Time
	seq   uint64
	fn    func()
}

// Scheduler is a deadline queue of named deferred actions against a single
// clock. It performs no locking: every method, and every action it runs, is
// expected on the same logical thread (see Run).
type Scheduler struct {
	clock   clockwork.Clock
	pending map[Token]*action
	seq     uint64
}

// New creates a scheduler driven by clock.
func New(clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		clock:   clock,
		pending: make(map[Token]*action),
	}
}

// Clock returns the clock the scheduler measures deadlines against.
func (s *Scheduler) Clock() clockwork.Clock {
	return s.clock
}

// Schedule arms fn to run once delay has elapsed, replacing any pending action
// with the same token.
func (s *Scheduler) Schedule(token Token, delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	s.pending[token] = &action{
		token: token,
		at:    s.clock.Now().Add(delay),
		seq:   s.seq,
		fn:    fn,
	}
	log.Debug().Str("token", string(token)).Dur("delay", delay).Msg("scheduled action")
}

// Cancel removes the pending action for token. A cancelled action never runs.
func (s *Scheduler) Cancel(token Token) bool {
	if _, ok := s.pending[token]; !ok {
		return false
	}
	delete(s.pending, token)
	log.Debug().Str("token", string(token)).Msg("cancelled action")
	return true
}

// CancelAll drops every pending action. Safe to call repeatedly.
func (s *Scheduler) CancelAll() {
	clear(s.pending)
}

// Pending reports whether token is armed.
func (s *Scheduler) Pending(token Token) bool {
	_, ok := s.pending[token]
	return ok
}

// Deadline returns when token is due to run.
func (s *Scheduler) Deadline(token Token) (time.Time, bool) {
	a, ok := s.pending[token]
	if !ok {
		return time.Time{}, false
	}
	return a.at, true
}

// Len returns the number of pending actions.
func (s *Scheduler) Len() int {
	return len(s.pending)
}

// NextDeadline returns the earliest pending deadline.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	next := s.earliest(^uint64(0))
	if next == nil {
		return time.Time{}, false
	}
	return next.at, true
}

// RunDue runs every action whose deadline has passed, earliest first, and
// returns how many ran. Actions scheduled while RunDue is running wait for the
// next call even when they are already due.
func (s *Scheduler) RunDue() int {
	limit := s.seq
	ran := 0
	for {
		next := s.earliest(limit)
		if next == nil || next.at.After(s.clock.Now()) {
			return ran
		}
		delete(s.pending, next.token)
		next.fn()
		ran++
	}
}

// earliest returns the pending action with the smallest deadline among those
// scheduled at or before seq limit. Ties go to the earlier scheduled action.
func (s *Scheduler) earliest(limit uint64) *action {
	var best *action
	for _, a := range s.pending {
		if a.seq > limit {
			continue
		}
		if best == nil || a.at.Before(best.at) || (a.at.Equal(best.at) && a.seq < best.seq) {
			best = a
		}
	}
	return best
}

// Run is the event thread: it executes functions posted on inbox and due
// actions on a single goroutine, sleeping on one reused timer until the next
// deadline. It returns when ctx is done or inbox is closed, dropping anything
// still pending.
func (s *Scheduler) Run(ctx context.Context, inbox <-chan func()) error {
	timer := s.clock.NewTimer(idlePollDuration)
	defer timer.Stop()
	defer s.CancelAll()

	for {
		wait := idlePollDuration
		if next, ok := s.NextDeadline(); ok {
			wait = next.Sub(s.clock.Now())
			if wait < 0 {
				wait = 0
			}
		}
		stopAndDrainTimer(timer)
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			log.Debug().Int("pending", s.Len()).Msg("scheduler loop shutting down")
			return nil
		case fn, ok := <-inbox:
			if !ok {
				log.Debug().Msg("scheduler inbox closed")
				return nil
			}
			fn()
		case <-timer.Chan():
			s.RunDue()
		}
	}
}

// stopAndDrainTimer stops a timer and drains its channel so a following Reset
// starts clean.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
