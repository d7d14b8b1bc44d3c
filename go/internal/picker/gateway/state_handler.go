package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateHandler serves table state over plain HTTP
type StateHandler struct {
	hub *Hub
}

// NewStateHandler creates a new state handler
func NewStateHandler(hub *Hub) *StateHandler {
	return &StateHandler{hub: hub}
}

// HandleGetTableState handles GET /api/tables/{id}/state
func (h *StateHandler) HandleGetTableState(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid table ID format", http.StatusBadRequest)
		return
	}

	table, err := h.hub.Table(tableID)
	if errors.Is(err, ErrTableNotFound) {
		http.Error(w, "Table not found", http.StatusNotFound)
		return
	}

	snap, err := table.Snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Str("table_id", tableID.String()).Msg("failed to get table state")
		http.Error(w, "Failed to get table state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// HandleListTables handles GET /api/tables
func (h *StateHandler) HandleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.Tables())
}

// HandleCreateTable handles POST /api/tables
func (h *StateHandler) HandleCreateTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.hub.CreateTable()
	if err != nil {
		log.Error().Err(err).Msg("failed to create table")
		http.Error(w, "Failed to create table", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, TableSummary{TableID: table.ID.String(), CreatedAt: table.CreatedAt})
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tables", h.HandleListTables)
	mux.HandleFunc("POST /api/tables", h.HandleCreateTable)
	mux.HandleFunc("GET /api/tables/{id}/state", h.HandleGetTableState)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
