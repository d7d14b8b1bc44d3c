package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const welcomeTimeout = 5 * time.Second

// WebSocketHandler handles WebSocket upgrade requests for table connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	hub               *Hub
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		hub:               hub,
	}
}

// HandleTableConnection seats a WebSocket client at a table, starting the
// table if it is not running yet.
func (h *WebSocketHandler) HandleTableConnection(w http.ResponseWriter, r *http.Request) {
	tableIDStr := r.URL.Query().Get("table_id")
	if tableIDStr == "" {
		http.Error(w, "table_id is required", http.StatusBadRequest)
		return
	}

	tableID, err := uuid.Parse(tableIDStr)
	if err != nil {
		http.Error(w, "invalid table_id format", http.StatusBadRequest)
		return
	}

	if _, err := h.hub.GetOrCreateTable(tableID); err != nil {
		log.Error().Err(err).Str("table_id", tableID.String()).Msg("failed to open table")
		http.Error(w, "failed to open table", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, tableID)
	if err != nil {
		// The upgrader has already replied to the client.
		log.Error().
			Err(err).
			Str("table_id", tableID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), welcomeTimeout)
	defer cancel()
	h.hub.Welcome(ctx, conn)
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/table", h.HandleTableConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
