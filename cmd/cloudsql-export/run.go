package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/cloudsql-export/internal/config"
	"github.com/fgeck/cloudsql-export/internal/models"
	"github.com/fgeck/cloudsql-export/internal/services/credentials"
	"github.com/fgeck/cloudsql-export/internal/services/exporter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger one export",
	Long: `Trigger one export:
1. Acquire service credentials
2. Compute the destination {BACKUP_PATH}/{timestamp}.sql.gz
3. Submit the export to the Cloud SQL Admin API
4. Log the outcome and send a Telegram notification (if configured)

Export errors are only logged unless fail_on_error is set.`,
	RunE: runExport,
}

// loadConfig reads configuration from the environment and, if given, the config file.
func loadConfig() (*models.ExportConfig, error) {
	parser := config.NewParser()

	var (
		cfg *models.ExportConfig
		err error
	)
	if configFile != "" {
		cfg, err = parser.LoadFile(configFile)
	} else {
		cfg, err = parser.LoadEnv()
	}
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}

	return cfg, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("project", cfg.ProjectID).
		Str("instance", cfg.Instance).
		Str("database", cfg.Database).
		Msg("configuration loaded")

	provider, err := credentials.New(cfg.Credentials)
	if err != nil {
		log.Error().Err(err).Msg("invalid credentials configuration")
		return err
	}

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	exporterSvc := exporter.New(log.Logger, provider)
	if err := exporterSvc.Run(ctx, *cfg); err != nil {
		log.Error().Err(err).Msg("export failed")
		return err
	}

	return nil
}
