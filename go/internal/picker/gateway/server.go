package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const Version = "1.0.0"

// ServerConfig configures the HTTP server around a Service.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

// NewServer builds the HTTP server for s: gateway routes plus health and
// info, behind CORS and h2c.
func NewServer(s *Service, cfg ServerConfig) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})

	s.RegisterRoutes(mux)
	setupHealthCheck(mux)
	setupInfo(mux, s)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func setupInfo(mux *http.ServeMux, s *Service) {
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := s.GetStats()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"service":     "picker-gateway",
			"version":     Version,
			"connections": stats["total_connections"],
			"tables":      stats["tables"],
		}); err != nil {
			log.Error().Err(err).Msg("failed to encode info response")
		}
	})
}
