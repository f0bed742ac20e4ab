package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/fgeck/cloudsql-export/internal/services/cloudsql"
	"github.com/fgeck/cloudsql-export/internal/services/credentials"
	"github.com/fgeck/cloudsql-export/internal/services/exporter"
	"github.com/fgeck/cloudsql-export/internal/services/server"
	"github.com/fgeck/cloudsql-export/internal/services/telegram"
	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an HTTP trigger for schedulers",
	Long: `Start an HTTP server that triggers one export per request:
  POST /export   trigger an export
  GET  /healthz  liveness probe

The listen address comes from server.listen, LISTEN_ADDR or PORT (default :8080).`,
	RunE: serve,
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider, err := credentials.New(cfg.Credentials)
	if err != nil {
		log.Error().Err(err).Msg("invalid credentials configuration")
		return err
	}

	// Clients are built once and shared by every request.
	cloudsqlSvc := cloudsql.New(log.Logger)
	telegramSvc := telegram.New(log.Logger)
	newRunner := func(logger zerolog.Logger) exporter.Service {
		return exporter.NewWithServices(logger, provider, cloudsqlSvc, telegramSvc, clock.WallClock)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(log.Logger, *cfg, newRunner)
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP trigger failed")
		return err
	}

	log.Info().Msg("HTTP trigger stopped")
	return nil
}
