package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanchriswhite/webdesk/internal/api"
	"github.com/bryanchriswhite/webdesk/internal/logger"
	"github.com/bryanchriswhite/webdesk/internal/metrics"
	"github.com/bryanchriswhite/webdesk/internal/render"
	"github.com/bryanchriswhite/webdesk/internal/session"
	"github.com/bryanchriswhite/webdesk/internal/supervisor"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webdesk server",
	Long: `Start the webdesk HTTP server.

The server hosts the browser client, a REST API for sessions and input, a
WebSocket scene stream per session and Prometheus metrics. Idle sessions are
unmounted after session.idle_timeout.`,
	Example: `  # Start server on default port (8080)
  webdesk serve

  # Start server on custom port
  webdesk serve --port 9090

  # Start with specific config file
  webdesk serve --config /path/to/config.yaml

  # Start with debug logging
  webdesk serve --log-level debug --pretty`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	log := logger.WithComponent("serve")

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	catalog, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("invalid application catalog: %w", err)
	}
	idleTimeout, err := cfg.IdleTimeout()
	if err != nil {
		return err
	}
	reapInterval, err := cfg.ReapInterval()
	if err != nil {
		return err
	}

	m := metrics.New()
	sessions := session.NewManager(session.Options{
		Catalog:    catalog,
		Layout:     cfg.Layout(),
		ZBase:      cfg.Desktop.ZBase,
		SpawnRange: cfg.Desktop.SpawnRange,
		Links:      cfg.Links,
		Playlist:   cfg.Playlist,
		Recorder:   m,
	})
	defer sessions.Close()

	renderer := render.New(cfg.Desktop.ViewportWidth, cfg.Desktop.ViewportHeight)
	server := api.NewServer(cfg.ServerPort, sessions, configMgr, m, renderer)

	super := supervisor.New("webdesk")
	supervisor.Add(super, server)
	supervisor.Add(super, session.NewJanitor(sessions, idleTimeout, reapInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("apps", catalog.Len()).
		Str("idle_timeout", idleTimeout.String()).
		Msgf("webdesk is running: http://localhost:%d", cfg.ServerPort)

	err = super.Serve(ctx)
	log.Info().Msg("Shutting down gracefully...")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
