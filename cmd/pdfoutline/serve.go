package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/api"
	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/pathstore"
	"github.com/dgallion1/pdfoutline/internal/pipeline"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the outline HTTP API",
	Long: `Start the pdfoutline HTTP server.

Endpoints:
  GET  /health                     - health check (no auth)
  POST /api/outline                - synchronous extraction of an uploaded file
  POST /api/jobs                   - queue an uploaded file
  POST /api/jobs/batch             - queue several files
  GET  /api/jobs/{id}              - job status
  GET  /api/jobs/{id}/outline      - finished outline
  GET  /api/stats                  - extraction latency statistics

Requests other than /health need "Authorization: Bearer <server.api_key>".
Heuristic changes in the config file apply to new jobs without a restart.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		if err := cfg.ValidateServer(); err != nil {
			return &exitError{code: exitInternal, err: err}
		}
		if mgr.ConfigFile() != "" {
			mgr.OnChange(func(c *config.Config) {
				logger.Info("config applied", "deadline", c.Engine.Deadline, "max_pages", c.Engine.MaxPages)
			})
			mgr.WatchConfig()
		}

		var ps *pathstore.Client
		if cfg.Pathstore.URL != "" {
			ps = pathstore.NewClient(cfg.Pathstore.URL, cfg.PathstoreAPIKey(), pathstore.RetryConfig{
				Attempts: cfg.Pathstore.RetryAttempts,
				Delay:    cfg.Pathstore.RetryDelay,
			})
			defer ps.Close()
			logger.Info("publishing outlines", "pathstore", cfg.Pathstore.URL)
		}

		orch := pipeline.NewOrchestrator(mgr, ps, logger)
		orch.Start(ctx)

		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}
		httpServer := &http.Server{
			Addr:         net.JoinHostPort(serveHost, port),
			Handler:      api.NewServer(orch, mgr, logger),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting pdfoutline", "addr", httpServer.Addr, "workers", cfg.Server.WorkerCount)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			orch.Stop()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return &exitError{code: exitInternal, err: err}
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		orch.Stop()
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (default: all interfaces)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default: server.port)")

	rootCmd.AddCommand(serveCmd)
}
