package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skypro1111/rxvoice/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long: `Run the HTTP server that receives messaging gateway webhooks and
drives prescription conversations.

Example:
  rxvoice serve --config configs/config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("Service starting",
		slog.String("version", serviceVersion),
		slog.String("config_path", configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
		slog.String("public_url", cfg.Server.PublicURL),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("synthesis_endpoint", cfg.Synthesis.Endpoint),
		slog.String("assistant_base_url", cfg.Assistant.BaseURL),
		slog.Duration("turn_timeout", cfg.Conversation.GetTurnTimeoutDuration()),
		slog.String("log_level", cfg.Logging.Level),
	)

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	turnTimeout := cfg.Conversation.GetTurnTimeoutDuration()
	httpServer := server.NewHTTPServer(server.Options{
		Address:       cfg.Server.Address,
		Port:          cfg.Server.Port,
		WriteTimeout:  turnTimeout + 10*time.Second,
		StaticDir:     svc.staticDir,
		Config:        cfg,
		Turns:         svc.orchestrator,
		Sessions:      svc.store,
		Transcription: svc.transcriber,
		Gatherer:      svc.registry,
	}, logger, svc.metrics)

	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Service started successfully, waiting for signals...")
	<-ctx.Done()
	logger.Info("Starting graceful shutdown...")

	// In-flight turns get their full deadline before the server gives up.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeoutDuration()+turnTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	svc.store.Stop()
	svc.stt.Close()

	stats := svc.transcriber.Stats()
	sessions := svc.store.GetStats()
	logger.Info("Final service statistics",
		slog.Int("active_sessions", sessions.Active),
		slog.Uint64("evicted_sessions", sessions.Evicted),
		slog.Uint64("transcription_requests", stats.TotalRequests),
		slog.Uint64("transcription_failures", stats.FailedRequests),
	)

	logger.Info("Service stopped")
	return nil
}
