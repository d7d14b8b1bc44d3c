package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/fingerpicker/go/internal/picker"
)

func newTestHub(t *testing.T, ttl time.Duration) (*Hub, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	hub := NewHub(HubConfig{Options: picker.DefaultOptions(), IdleTTL: ttl}, clock, nil, nil)
	t.Cleanup(hub.Close)
	return hub, clock
}

func TestHubGetOrCreateTable(t *testing.T) {
	hub, _ := newTestHub(t, 0)

	id := uuid.New()
	first, err := hub.GetOrCreateTable(id)
	if err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}
	second, err := hub.GetOrCreateTable(id)
	if err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}
	if first != second {
		t.Error("expected the same table for the same id")
	}

	if _, err := hub.CreateTable(); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if got := len(hub.Tables()); got != 2 {
		t.Errorf("Tables() = %d, want 2", got)
	}
	if _, err := hub.Table(uuid.New()); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Table(unknown) = %v, want ErrTableNotFound", err)
	}
}

func TestHubReapIdle(t *testing.T) {
	hub, clock := newTestHub(t, time.Minute)

	idle, err := hub.CreateTable()
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	clock.Advance(40 * time.Second)
	busy, err := hub.CreateTable()
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	clock.Advance(30 * time.Second)

	if got := hub.ReapIdle(); got != 1 {
		t.Fatalf("ReapIdle() = %d, want 1", got)
	}
	if _, err := hub.Table(idle.ID); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("idle table still listed: %v", err)
	}
	if _, err := hub.Table(busy.ID); err != nil {
		t.Errorf("busy table reaped: %v", err)
	}

	select {
	case <-idle.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reaped table loop did not stop")
	}
}

func TestHubOpeningTableKeepsItAlive(t *testing.T) {
	hub, clock := newTestHub(t, time.Minute)

	table, err := hub.CreateTable()
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	clock.Advance(70 * time.Second)

	// A client being seated reopens the table just before the sweep.
	again, err := hub.GetOrCreateTable(table.ID)
	if err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}
	if again != table {
		t.Fatal("expected the running table")
	}
	if got := hub.ReapIdle(); got != 0 {
		t.Fatalf("ReapIdle() = %d, want 0", got)
	}
}

func TestHubMessageReopensReapedTable(t *testing.T) {
	hub, clock := newTestHub(t, time.Minute)

	table, err := hub.CreateTable()
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	clock.Advance(70 * time.Second)
	if got := hub.ReapIdle(); got != 1 {
		t.Fatalf("ReapIdle() = %d, want 1", got)
	}

	conn := &Connection{ID: "late", TableID: table.ID}
	hub.HandleMessage(conn, []byte(`{"type":"touch_begin","pointer_id":1,"x":5,"y":5}`))

	reopened, err := hub.Table(table.ID)
	if err != nil {
		t.Fatalf("Table() after a message = %v, want a running table", err)
	}
	if reopened == table {
		t.Fatal("expected a fresh table in place of the reaped one")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := reopened.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Contestants) != 1 {
		t.Errorf("contestants = %d, want the message applied", len(snap.Contestants))
	}
}

func TestHubReapDisabled(t *testing.T) {
	hub, clock := newTestHub(t, 0)
	if _, err := hub.CreateTable(); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	clock.Advance(24 * time.Hour)
	if got := hub.ReapIdle(); got != 0 {
		t.Errorf("ReapIdle() = %d, want 0", got)
	}
}

func TestHubClosedRejectsTables(t *testing.T) {
	hub, _ := newTestHub(t, 0)
	hub.Close()
	if _, err := hub.CreateTable(); !errors.Is(err, ErrTableClosed) {
		t.Errorf("CreateTable() after Close = %v, want ErrTableClosed", err)
	}
}

func newTestService(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Hub.Options = picker.DefaultOptions()
	cfg.ReapInterval = 0
	svc := NewService(cfg, clockwork.NewFakeClock(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Start(ctx)
	}()

	srv := httptest.NewServer(NewServer(svc, ServerConfig{AllowedOrigins: []string{"*"}}).Handler)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return svc, srv
}

func TestStateRoutes(t *testing.T) {
	svc, srv := newTestService(t)

	resp, err := http.Post(srv.URL+"/api/tables", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/tables: %v", err)
	}
	var created TableSummary
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created table: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if _, err := svc.Hub().Table(uuid.MustParse(created.TableID)); err != nil {
		t.Fatalf("created table not hosted: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "state", path: "/api/tables/" + created.TableID + "/state", status: http.StatusOK},
		{name: "bad id", path: "/api/tables/not-a-uuid/state", status: http.StatusBadRequest},
		{name: "unknown table", path: "/api/tables/" + uuid.NewString() + "/state", status: http.StatusNotFound},
		{name: "list", path: "/api/tables", status: http.StatusOK},
		{name: "health", path: "/health", status: http.StatusOK},
		{name: "info", path: "/info", status: http.StatusOK},
		{name: "ws without table", path: "/ws/table", status: http.StatusBadRequest},
		{name: "ws bad table", path: "/ws/table?table_id=nope", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.status)
			}
		})
	}

	resp, err = http.Get(srv.URL + "/api/tables/" + created.TableID + "/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp.Body.Close()
	var snap struct {
		State string `json:"state"`
		Mode  string `json:"mode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if snap.State != "idle" || snap.Mode != "single" {
		t.Errorf("state = %+v, want idle single", snap)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn, want EventType) TableEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var event TableEvent
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("waiting for %s event: %v", want, err)
		}
		if event.Type == want {
			return event
		}
	}
}

func TestWebSocketTable(t *testing.T) {
	svc, srv := newTestService(t)

	tableID := uuid.New()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/table?table_id=" + tableID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readEvent(t, conn, EventTypeState)
	if _, err := svc.Hub().Table(tableID); err != nil {
		t.Fatalf("table not opened on connect: %v", err)
	}

	if err := conn.WriteJSON(ClientMessage{Type: MessageTouchBegin, PointerID: 1, X: 40, Y: 60}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var snap struct {
		State       string `json:"state"`
		Contestants []struct {
			X float64 `json:"x"`
		} `json:"contestants"`
	}
	for {
		event := readEvent(t, conn, EventTypeState)
		if err := json.Unmarshal(event.Data, &snap); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if len(snap.Contestants) == 1 {
			break
		}
	}
	if snap.State != "active" || snap.Contestants[0].X != 40 {
		t.Errorf("state = %+v", snap)
	}

	if err := conn.WriteJSON(ClientMessage{Type: "wave"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	event := readEvent(t, conn, EventTypeError)
	var payload ErrorPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !strings.Contains(payload.Message, "unknown message type") {
		t.Errorf("error message = %q", payload.Message)
	}
}
