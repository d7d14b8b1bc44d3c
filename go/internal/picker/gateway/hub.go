package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fingerpicker/go/internal/picker"
)

var ErrTableNotFound = errors.New("table not found")

// HubConfig configures table hosting.
type HubConfig struct {
	Options picker.Options
	// IdleTTL is how long a table without clients or messages survives.
	// Zero keeps tables forever.
	IdleTTL time.Duration
	// NewRand returns the random source for a new table.
	NewRand func() picker.Rand
}

// TableSummary is the listing view of a table.
type TableSummary struct {
	TableID   string    `json:"table_id"`
	CreatedAt time.Time `json:"created_at"`
	Clients   int       `json:"clients"`
}

// Hub owns the tables and routes client messages to them.
type Hub struct {
	config      HubConfig
	clock       clockwork.Clock
	connections *ConnectionManager
	publisher   Publisher

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	tables map[uuid.UUID]*Table
	stops  map[uuid.UUID]context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub broadcasting through cm. publisher may be nil.
func NewHub(config HubConfig, clock clockwork.Clock, cm *ConnectionManager, publisher Publisher) *Hub {
	if config.NewRand == nil {
		config.NewRand = func() picker.Rand {
			return rand.New(rand.NewSource(clock.Now().UnixNano()))
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:      config,
		clock:       clock,
		connections: cm,
		publisher:   publisher,
		ctx:         ctx,
		cancel:      cancel,
		tables:      make(map[uuid.UUID]*Table),
		stops:       make(map[uuid.UUID]context.CancelFunc),
	}
}

// CreateTable starts a new table and returns it.
func (h *Hub) CreateTable() (*Table, error) {
	return h.createTable(uuid.New())
}

// GetOrCreateTable returns the table with id, starting it if needed. An
// existing table counts as active again, so the reaper leaves it alone while
// a client is being seated.
func (h *Hub) GetOrCreateTable(id uuid.UUID) (*Table, error) {
	return h.createTable(id)
}

func (h *Hub) createTable(id uuid.UUID) (*Table, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.tables[id]; ok {
		t.markActive()
		return t, nil
	}
	if h.ctx.Err() != nil {
		return nil, ErrTableClosed
	}

	// Keep a nil manager from becoming a non-nil interface.
	var broadcaster Broadcaster
	if h.connections != nil {
		broadcaster = h.connections
	}

	t, err := NewTable(id, TableDeps{
		Clock:       h.clock,
		Rand:        h.config.NewRand(),
		Options:     h.config.Options,
		Broadcaster: broadcaster,
		Publisher:   h.publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", id, err)
	}
	ctx, cancel := context.WithCancel(h.ctx)
	h.tables[id] = t
	h.stops[id] = cancel

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := t.Run(ctx); err != nil {
			log.Error().Err(err).Str("table_id", id.String()).Msg("table loop failed")
		}
	}()
	return t, nil
}

// Table returns a running table.
func (h *Hub) Table(id uuid.UUID) (*Table, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

// Tables lists the running tables, oldest first.
func (h *Hub) Tables() []TableSummary {
	h.mu.RLock()
	out := make([]TableSummary, 0, len(h.tables))
	for id, t := range h.tables {
		out = append(out, TableSummary{TableID: id.String(), CreatedAt: t.CreatedAt, Clients: h.clients(id)})
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TableID < out[j].TableID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (h *Hub) clients(id uuid.UUID) int {
	if h.connections == nil {
		return 0
	}
	return h.connections.TableConnectionCount(id)
}

// HandleMessage implements MessageHandler.
func (h *Hub) HandleMessage(c *Connection, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.replyError(c, fmt.Errorf("malformed message: %w", err))
		return
	}

	// The table may have been reaped while the client sat idle.
	t, err := h.GetOrCreateTable(c.TableID)
	if err != nil {
		h.replyError(c, err)
		return
	}

	reply := func(err error) { h.replyError(c, err) }
	if err := t.Apply(c.ID, msg, reply); err != nil {
		h.replyError(c, err)
	}
}

// HandleDisconnect implements MessageHandler.
func (h *Hub) HandleDisconnect(c *Connection) {
	t, err := h.Table(c.TableID)
	if err != nil {
		return
	}
	if err := t.Leave(c.ID); err != nil && !errors.Is(err, ErrTableClosed) {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("failed to release fingers")
	}
}

// Welcome sends the current state to a newly seated client.
func (h *Hub) Welcome(ctx context.Context, c *Connection) {
	t, err := h.Table(c.TableID)
	if err != nil || h.connections == nil {
		return
	}
	snap, err := t.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("failed to read table state")
		return
	}
	event, err := newEvent(t.ID, EventTypeState, h.clock.Now(), snap)
	if err != nil {
		return
	}
	h.connections.SendToConnection(c, event)
}

func (h *Hub) replyError(c *Connection, err error) {
	log.Debug().Err(err).Str("connection_id", c.ID).Msg("rejected client message")
	if h.connections == nil {
		return
	}
	event, mErr := newEvent(c.TableID, EventTypeError, h.clock.Now(), ErrorPayload{Message: err.Error()})
	if mErr != nil {
		return
	}
	h.connections.SendToConnection(c, event)
}

// ReapIdle stops tables that have had no clients and no messages for the
// idle TTL. It returns how many were stopped.
func (h *Hub) ReapIdle() int {
	if h.config.IdleTTL <= 0 {
		return 0
	}
	now := h.clock.Now()

	h.mu.Lock()
	defer h.mu.Unlock()
	reaped := 0
	for id, t := range h.tables {
		if h.clients(id) > 0 || now.Sub(t.LastActive()) < h.config.IdleTTL {
			continue
		}
		h.stops[id]()
		delete(h.tables, id)
		delete(h.stops, id)
		reaped++
		log.Info().Str("table_id", id.String()).Msg("reaping idle table")
	}
	return reaped
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (h *Hub) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			h.ReapIdle()
		}
	}
}

// Close stops every table and waits for their loops to exit.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
	h.mu.Lock()
	h.tables = make(map[uuid.UUID]*Table)
	h.stops = make(map[uuid.UUID]context.CancelFunc)
	h.mu.Unlock()
}
