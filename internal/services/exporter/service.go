// Package exporter triggers a Cloud SQL database export and reports the outcome.
package exporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/cloudsql-export/internal/models"
	"github.com/fgeck/cloudsql-export/internal/services/cloudsql"
	"github.com/fgeck/cloudsql-export/internal/services/credentials"
	"github.com/fgeck/cloudsql-export/internal/services/telegram"
	"github.com/juju/clock"
	"github.com/rs/zerolog"
)

// timestampLayout is ISO-8601 truncated to seconds.
const timestampLayout = "2006-01-02T15:04:05"

// Workflow step names reported in notifications.
const (
	StepCredentials = "credentials"
	StepExport      = "export"
)

// ExportRequestError reports that the export call was rejected or could not be made.
type ExportRequestError struct {
	DestinationURI string
	Err            error
}

func (e *ExportRequestError) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.DestinationURI, e.Err)
}

func (e *ExportRequestError) Unwrap() error {
	return e.Err
}

// Service defines the interface for the export trigger.
type Service interface {
	Run(ctx context.Context, cfg models.ExportConfig) error
}

// Impl implements the exporter Service interface. One instance is built per
// process and shared by every invocation; it holds no per-invocation state.
type Impl struct {
	credentials credentials.Provider
	cloudsqlSvc cloudsql.Service
	telegramSvc telegram.Service
	clock       clock.Clock
	logger      zerolog.Logger
}

// New creates a new export trigger using the given credential provider.
func New(logger zerolog.Logger, provider credentials.Provider) *Impl {
	return &Impl{
		credentials: provider,
		cloudsqlSvc: cloudsql.New(logger),
		telegramSvc: telegram.New(logger),
		clock:       clock.WallClock,
		logger:      logger,
	}
}

// NewWithServices creates a new export trigger with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	provider credentials.Provider,
	cloudsqlSvc cloudsql.Service,
	telegramSvc telegram.Service,
	clk clock.Clock,
) *Impl {
	return &Impl{
		credentials: provider,
		cloudsqlSvc: cloudsqlSvc,
		telegramSvc: telegramSvc,
		clock:       clk,
		logger:      logger,
	}
}

// DestinationURI returns {backupPath}/{UTC timestamp to the second}.sql.gz.
// Invocations within the same second produce the same URI.
func DestinationURI(backupPath string, t time.Time) string {
	return fmt.Sprintf("%s/%s.sql.gz", strings.TrimSuffix(backupPath, "/"), t.UTC().Format(timestampLayout))
}

// BuildRequest assembles the export request for one invocation.
func BuildRequest(cfg models.ExportConfig, creds *models.Credentials, uri string) models.ExportRequest {
	return models.ExportRequest{
		Credentials: creds,
		Project:     cfg.ProjectID,
		Instance:    cfg.Instance,
		ExportContext: models.ExportContext{
			Kind:      models.ExportContextKind,
			Databases: []string{cfg.Database},
			FileType:  models.FileTypeSQL,
			URI:       uri,
		},
	}
}

// Run authenticates, submits the export and logs the outcome.
//
// Credential failures are returned as *credentials.AuthenticationError before
// any remote call is made. Export failures are logged and only returned, as
// *ExportRequestError, when cfg.FailOnError is set.
func (s *Impl) Run(ctx context.Context, cfg models.ExportConfig) error {
	startTime := s.clock.Now()
	msg := models.TelegramMessage{
		ProjectID: cfg.ProjectID,
		Instance:  cfg.Instance,
		Database:  cfg.Database,
		StartTime: startTime,
	}

	defer func() {
		if cfg.Telegram != nil {
			msg.Duration = s.clock.Now().Sub(startTime)
			s.sendNotification(ctx, *cfg.Telegram, msg)
		}
	}()

	s.logger.Info().
		Str("database", cfg.Database).
		Str("instance", cfg.Instance).
		Msgf("backing up %s", cfg.Database)

	// Step 1: credentials
	creds, err := s.credentials.Credentials(ctx)
	if err != nil {
		msg.FailedStep = StepCredentials
		msg.ErrorMessage = err.Error()
		return fmt.Errorf("authentication failed: %w", err)
	}

	s.logger.Debug().
		Str("source", creds.Source).
		Str("credentials_project", creds.ProjectID).
		Msg("credentials acquired")

	// Steps 2-3: destination and request
	uri := DestinationURI(cfg.BackupPath, startTime)
	msg.DestinationURI = uri
	req := BuildRequest(cfg, creds, uri)

	// Step 4: submit
	result, err := s.cloudsqlSvc.Export(ctx, req)
	if err == nil && result.Error != nil {
		err = result.Error
	}

	// Step 5: report
	if err != nil {
		msg.FailedStep = StepExport
		msg.ErrorMessage = err.Error()

		s.logger.Error().
			Err(err).
			Str("database", cfg.Database).
			Str("uri", uri).
			Msg("export request failed")

		if cfg.FailOnError {
			return &ExportRequestError{DestinationURI: uri, Err: err}
		}
		return nil
	}

	msg.Success = true
	msg.OperationName = result.OperationName

	s.logger.Info().
		Str("database", cfg.Database).
		Str("operation", result.OperationName).
		Msgf("finished backing up %s", cfg.Database)
	s.logger.Info().
		Str("uri", uri).
		Msgf("file saved at %s", uri)

	return nil
}

func (s *Impl) sendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) {
	result, err := s.telegramSvc.SendNotification(ctx, cfg, msg)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Warn().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Debug().Msg("Telegram notification sent")
}
