// Package mobile runs one picker on a device. Platform events come in
// through the input adapter and the countdown tone plays on a sink.
package mobile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fingerpicker/go/internal/picker"
	"github.com/mcdev12/fingerpicker/go/internal/picker/feedback"
	"github.com/mcdev12/fingerpicker/go/internal/picker/input"
	"github.com/mcdev12/fingerpicker/go/internal/picker/schedule"
	"github.com/mcdev12/fingerpicker/go/internal/tone"
)

var ErrSessionClosed = errors.New("session is closed")

const inboxSize = 64

var _ input.Target = (*picker.StateMachine)(nil)

// Config configures a Session.
type Config struct {
	Options picker.Options
	// Sink receives the countdown tone. Nil plays no tone.
	Sink tone.Sink
	// Feedback gets every request as well, for haptics or rendering.
	Feedback feedback.Collaborator
}

// Session owns a state machine and the single thread it runs on.
type Session struct {
	sched   *schedule.Scheduler
	machine *picker.StateMachine
	adapter *input.Adapter
	player  *tone.Player
	logger  zerolog.Logger

	inbox chan func()
	done  chan struct{}
}

// New builds a session. Call Run to start it.
func New(clock clockwork.Clock, rng picker.Rand, cfg Config) (*Session, error) {
	s := &Session{
		sched:  schedule.New(clock),
		logger: log.With().Str("component", "mobile").Logger(),
		inbox:  make(chan func(), inboxSize),
		done:   make(chan struct{}),
	}

	collaborators := feedback.Fanout{feedback.NewLogger(s.logger)}
	if cfg.Sink != nil {
		s.player = tone.NewPlayer(cfg.Sink)
		collaborators = append(collaborators, feedback.Audio{Player: s.player})
	}
	if cfg.Feedback != nil {
		collaborators = append(collaborators, cfg.Feedback)
	}

	m, err := picker.New(clock, rng, s.sched, collaborators, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("create state machine: %w", err)
	}
	s.machine = m
	s.adapter = input.New(m, s.post)
	return s, nil
}

// Run drives the session until ctx is done. Any tone still playing is
// stopped before it returns.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.logger.Info().Msg("session started")
	err := s.sched.Run(ctx, s.inbox)
	if s.player != nil {
		s.player.Stop()
		s.player.Wait()
	}
	s.logger.Info().Msg("session stopped")
	return err
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Handle passes one platform event to the picker and reports whether it
// was used. It is safe to call from the app's event goroutine.
func (s *Session) Handle(e interface{}) bool {
	return s.adapter.Handle(e)
}

// Snapshot returns the current state, read on the session thread.
func (s *Session) Snapshot(ctx context.Context) (picker.Snapshot, error) {
	ch := make(chan picker.Snapshot, 1)
	select {
	case s.inbox <- func() { ch <- s.machine.Snapshot() }:
	case <-s.done:
		return picker.Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return picker.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-ch:
		return snap, nil
	case <-s.done:
		return picker.Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return picker.Snapshot{}, ctx.Err()
	}
}

func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
		s.logger.Debug().Msg("dropping input after shutdown")
	}
}
