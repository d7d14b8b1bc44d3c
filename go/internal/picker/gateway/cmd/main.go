package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fingerpicker/go/internal/picker/config"
	"github.com/mcdev12/fingerpicker/go/internal/picker/feedback"
	"github.com/mcdev12/fingerpicker/go/internal/picker/gateway"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(os.Getenv("PICKER_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg.Log)

	log.Info().
		Str("mode", cfg.Game.Mode.Key()).
		Dur("countdown", cfg.Game.Countdown).
		Bool("nats", cfg.NATS.Enabled).
		Int("port", cfg.Gateway.Port).
		Msg("starting picker gateway")

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.Hub.Options = cfg.PickerOptions()
	gatewayConfig.Hub.IdleTTL = cfg.Gateway.TableIdleTTL

	// A nil *NATSPublisher must not reach the gateway as a non-nil interface.
	var publisher gateway.Publisher
	if cfg.NATS.Enabled {
		natsPublisher, err := feedback.NewNATSPublisher(cfg.NATS.Conn)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATS.Conn.URL).Msg("failed to connect to NATS")
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	gatewayService := gateway.NewService(gatewayConfig, clockwork.NewRealClock(), publisher)
	server := gateway.NewServer(gatewayService, gateway.ServerConfig{
		Port:           cfg.Gateway.Port,
		AllowedOrigins: cfg.Gateway.AllowedOrigins,
	})

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	select {
	case <-serviceDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("timed out waiting for tables to stop")
	}

	log.Info().Msg("picker gateway shutdown complete")
}
