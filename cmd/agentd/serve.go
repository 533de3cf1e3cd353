package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/config"
	"github.com/fyrsmithlabs/agentd/internal/gate"
	"github.com/fyrsmithlabs/agentd/internal/httpapi"
	"github.com/fyrsmithlabs/agentd/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agentd HTTP daemon",
	Long: `Start agentd as an HTTP daemon. Messages posted to /api/v1/messages
run through the full pipeline; approvals are resolved by the configured
policy since no interactive channel is attached.

Examples:
  # Start with defaults
  agentd serve

  # Configure via environment
  AGENTD_SERVER_PORT=9000 AGENTD_WORKSPACE_ROOT=/srv/ws agentd serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	prompt := gate.PolicyPrompt{
		ApproveModerate:  cfg.Gate.ApproveModerate,
		ApproveDangerous: cfg.Gate.ApproveDangerous,
	}
	p, err := buildPipeline(cfg, prompt, logger)
	if err != nil {
		return err
	}
	defer p.close()

	server, err := httpapi.NewServer(p.orch, p.auditLog, p.registry, logger.Named("http"), &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("initializing http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
