package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fingerpicker/go/internal/picker"
	"github.com/mcdev12/fingerpicker/go/internal/picker/events"
	"github.com/mcdev12/fingerpicker/go/internal/picker/feedback"
	"github.com/mcdev12/fingerpicker/go/internal/picker/pick"
	"github.com/mcdev12/fingerpicker/go/internal/picker/registry"
	"github.com/mcdev12/fingerpicker/go/internal/picker/schedule"
)

var ErrTableClosed = errors.New("table is closed")
var ErrUnknownMessage = errors.New("unknown message type")

const inboxSize = 64

// Broadcaster delivers table events to the clients at a table.
type Broadcaster interface {
	BroadcastToTable(tableID uuid.UUID, event *TableEvent)
}

// Publisher mirrors table activity to an external bus. *feedback.NATSPublisher
// implements it.
type Publisher interface {
	ForTable(tableID uuid.UUID) feedback.Collaborator
	PublishRoundFinished(tableID uuid.UUID, payload events.RoundFinishedPayload) error
	PublishModeChanged(tableID uuid.UUID, payload events.ModeChangedPayload) error
}

// Table hosts one game. The state machine is only touched from the table's
// own Run loop; everything else goes through Post.
type Table struct {
	ID        uuid.UUID
	CreatedAt time.Time

	clock       clockwork.Clock
	sched       *schedule.Scheduler
	machine     *picker.StateMachine
	broadcaster Broadcaster
	publisher   Publisher
	logger      zerolog.Logger

	inbox      chan func()
	done       chan struct{}
	lastActive atomic.Int64

	// Pointer namespacing, owned by the Run loop.
	slots    map[string]int64
	nextSlot int64
	owned    map[string]map[registry.ID]struct{}
}

// TableDeps are the collaborators a table is built with.
type TableDeps struct {
	Clock       clockwork.Clock
	Rand        picker.Rand
	Options     picker.Options
	Broadcaster Broadcaster
	Publisher   Publisher
}

// NewTable builds a table. Call Run to start its loop.
func NewTable(id uuid.UUID, deps TableDeps) (*Table, error) {
	t := &Table{
		ID:          id,
		CreatedAt:   deps.Clock.Now(),
		clock:       deps.Clock,
		sched:       schedule.New(deps.Clock),
		broadcaster: deps.Broadcaster,
		publisher:   deps.Publisher,
		logger:      log.With().Str("table_id", id.String()).Logger(),
		inbox:       make(chan func(), inboxSize),
		done:        make(chan struct{}),
		slots:       make(map[string]int64),
		owned:       make(map[string]map[registry.ID]struct{}),
	}
	t.lastActive.Store(t.CreatedAt.UnixNano())

	collaborators := feedback.Fanout{
		feedback.NewLogger(t.logger),
		feedback.Func(t.broadcastFeedback),
	}
	if t.publisher != nil {
		collaborators = append(collaborators, t.publisher.ForTable(id))
	}

	m, err := picker.New(deps.Clock, deps.Rand, t.sched, collaborators, deps.Options)
	if err != nil {
		return nil, fmt.Errorf("create state machine: %w", err)
	}
	t.machine = m

	m.OnRoundFinished(t.roundFinished)
	// Registering the observer fires it once with the initial mode.
	m.OnModeChanged(t.modeChanged)
	return t, nil
}

// Run drives the table until ctx is done.
func (t *Table) Run(ctx context.Context) error {
	defer close(t.done)
	t.logger.Info().Msg("table started")
	err := t.sched.Run(ctx, t.inbox)
	t.logger.Info().Msg("table stopped")
	return err
}

// Done is closed once Run has returned.
func (t *Table) Done() <-chan struct{} {
	return t.done
}

// LastActive returns when the table was last opened for a client or sent
// a message.
func (t *Table) LastActive() time.Time {
	return time.Unix(0, t.lastActive.Load())
}

func (t *Table) markActive() {
	t.lastActive.Store(t.clock.Now().UnixNano())
}

// Post runs fn on the table loop and then broadcasts the new state.
func (t *Table) Post(fn func()) error {
	return t.post(func() {
		fn()
		t.broadcastState()
	})
}

func (t *Table) post(fn func()) error {
	select {
	case <-t.done:
		return ErrTableClosed
	default:
	}
	select {
	case t.inbox <- fn:
		return nil
	case <-t.done:
		return ErrTableClosed
	}
}

// Snapshot returns the current state, read on the table loop.
func (t *Table) Snapshot(ctx context.Context) (picker.Snapshot, error) {
	ch := make(chan picker.Snapshot, 1)
	if err := t.post(func() { ch <- t.machine.Snapshot() }); err != nil {
		return picker.Snapshot{}, err
	}
	select {
	case snap := <-ch:
		return snap, nil
	case <-ctx.Done():
		return picker.Snapshot{}, ctx.Err()
	case <-t.done:
		return picker.Snapshot{}, ErrTableClosed
	}
}

// Apply validates a client message and queues it. Errors found on the table
// loop (a disabled mode, say) are passed to reply.
func (t *Table) Apply(connID string, msg ClientMessage, reply func(error)) error {
	var fn func()
	switch msg.Type {
	case MessageTouchBegin:
		fn = func() { t.machine.OnTouchBegin(t.claim(connID, msg.PointerID), msg.X, msg.Y) }
	case MessageTouchMove:
		fn = func() { t.machine.OnTouchMove(t.pointer(connID, msg.PointerID), msg.X, msg.Y) }
	case MessageTouchEnd:
		fn = func() { t.machine.OnTouchEnd(t.release(connID, msg.PointerID)) }
	case MessageTouchCancel:
		fn = func() {
			t.machine.OnTouchCancel()
			t.forgetPointers()
		}
	case MessageReset:
		fn = func() {
			t.machine.Reset()
			t.forgetPointers()
		}
	case MessageViewport:
		// The table draws for one screen; the last client to report wins.
		fn = func() { t.machine.SetViewport(msg.Width, msg.Height) }
	case MessageSetMode:
		mode, err := pick.ParseMode(msg.Mode)
		if err != nil {
			return err
		}
		fn = func() {
			if err := t.machine.SetMode(mode); err != nil {
				if reply != nil {
					reply(err)
				}
				return
			}
			t.forgetPointers()
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}

	t.markActive()
	return t.Post(fn)
}

// Leave releases every finger a connection still holds.
func (t *Table) Leave(connID string) error {
	return t.Post(func() {
		for id := range t.owned[connID] {
			t.machine.OnTouchEnd(id)
		}
		delete(t.owned, connID)
		delete(t.slots, connID)
	})
}

// pointer maps a client pointer id into the table-wide id space: the
// connection's slot in the high 32 bits, the pointer in the low 32.
func (t *Table) pointer(connID string, p int64) registry.ID {
	slot, ok := t.slots[connID]
	if !ok {
		t.nextSlot++
		slot = t.nextSlot
		t.slots[connID] = slot
	}
	return registry.ID(slot<<32 | int64(uint32(p)))
}

func (t *Table) claim(connID string, p int64) registry.ID {
	id := t.pointer(connID, p)
	if t.owned[connID] == nil {
		t.owned[connID] = make(map[registry.ID]struct{})
	}
	t.owned[connID][id] = struct{}{}
	return id
}

func (t *Table) release(connID string, p int64) registry.ID {
	id := t.pointer(connID, p)
	delete(t.owned[connID], id)
	return id
}

func (t *Table) forgetPointers() {
	for connID := range t.owned {
		delete(t.owned, connID)
	}
}

func (t *Table) broadcastState() {
	t.broadcast(EventTypeState, t.machine.Snapshot())
}

func (t *Table) broadcastFeedback(req events.Request) {
	t.broadcast(EventTypeFeedback, req)
}

func (t *Table) roundFinished(out pick.Outcome) {
	winners := make([]int64, 0, len(out.Winners))
	for _, id := range out.Winners {
		winners = append(winners, int64(id))
	}
	payload := events.RoundFinishedPayload{
		RoundID:      out.RoundID.String(),
		Mode:         out.Mode.Key(),
		Winners:      winners,
		WinningColor: out.WinningColor,
		Contestants:  len(t.machine.Contestants()),
		FinishedAt:   out.PickedAt,
	}
	t.broadcast(EventTypeRoundFinished, payload)
	t.broadcastState()

	if t.publisher != nil {
		if err := t.publisher.PublishRoundFinished(t.ID, payload); err != nil {
			t.logger.Warn().Err(err).Msg("failed to publish round result")
		}
	}
}

func (t *Table) modeChanged(mode pick.Mode) {
	payload := events.ModeChangedPayload{
		Mode:        mode.Key(),
		DisplayName: mode.String(),
		ChangedAt:   t.clock.Now(),
	}
	t.broadcast(EventTypeModeChanged, payload)

	if t.publisher != nil {
		if err := t.publisher.PublishModeChanged(t.ID, payload); err != nil {
			t.logger.Warn().Err(err).Msg("failed to publish mode change")
		}
	}
}

func (t *Table) broadcast(typ EventType, payload interface{}) {
	if t.broadcaster == nil {
		return
	}
	event, err := newEvent(t.ID, typ, t.clock.Now(), payload)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to build table event")
		return
	}
	t.broadcaster.BroadcastToTable(t.ID, event)
}
