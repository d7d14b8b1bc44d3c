package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service is the table gateway: it hosts tables and serves their clients
// over WebSocket and HTTP.
type Service struct {
	connectionManager *ConnectionManager
	hub               *Hub
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler

	reapInterval time.Duration
}

// Config holds configuration for the table gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	Hub              HubConfig
	// ReapInterval is how often idle tables are looked for.
	ReapInterval time.Duration
}

// DefaultConfig returns default configuration for the table gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Hub:              HubConfig{IdleTTL: 30 * time.Minute},
		ReapInterval:     time.Minute,
	}
}

// NewService creates a new table gateway service. publisher may be nil.
func NewService(config Config, clock clockwork.Clock, publisher Publisher) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	hub := NewHub(config.Hub, clock, connectionManager, publisher)
	connectionManager.SetHandler(hub)

	return &Service{
		connectionManager: connectionManager,
		hub:               hub,
		wsHandler:         NewWebSocketHandler(connectionManager, hub),
		stateHandler:      NewStateHandler(hub),
		reapInterval:      config.ReapInterval,
	}
}

// Hub returns the table hub.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Start runs the gateway until ctx is done, then stops every table.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting table gateway service")

	go s.connectionManager.Start(ctx)
	if s.reapInterval > 0 {
		go s.hub.RunReaper(ctx, s.reapInterval)
	}

	<-ctx.Done()

	log.Info().Msg("table gateway service shutting down")
	return s.Stop()
}

// Stop stops every table
func (s *Service) Stop() error {
	s.hub.Close()
	log.Info().Msg("table gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("table gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "table_gateway"
	stats["status"] = "running"
	stats["tables"] = len(s.hub.Tables())
	return stats
}
