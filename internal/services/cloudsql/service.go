// Package cloudsql wraps the Cloud SQL Admin API export operation.
package cloudsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgeck/cloudsql-export/internal/models"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sqladmin/v1"
)

const userAgent = "cloudsql-export"

// Service defines the interface for Cloud SQL Admin operations.
type Service interface {
	Export(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error)
}

// Impl implements the cloudsql Service interface. It is safe for concurrent use.
type Impl struct {
	logger zerolog.Logger
	opts   []option.ClientOption
}

// New creates a new Cloud SQL Admin service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		logger: logger,
		opts:   []option.ClientOption{option.WithUserAgent(userAgent)},
	}
}

// NewWithOptions creates a new service with extra client options, e.g. a custom endpoint (for testing).
func NewWithOptions(logger zerolog.Logger, opts ...option.ClientOption) *Impl {
	return &Impl{
		logger: logger,
		opts:   append([]option.ClientOption{option.WithUserAgent(userAgent)}, opts...),
	}
}

// Export submits an instances.export call and returns once the operation is accepted.
// It does not wait for the export job to finish.
func (s *Impl) Export(ctx context.Context, req models.ExportRequest) (*models.ExportResult, error) {
	if req.Credentials == nil || req.Credentials.TokenSource == nil {
		return nil, fmt.Errorf("export request has no credentials")
	}

	start := time.Now()
	result := &models.ExportResult{
		DestinationURI: req.ExportContext.URI,
	}

	opts := append([]option.ClientOption{option.WithTokenSource(req.Credentials.TokenSource)}, s.opts...)
	svc, err := sqladmin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sqladmin client: %w", err)
	}

	body := &sqladmin.InstancesExportRequest{
		ExportContext: &sqladmin.ExportContext{
			Kind:      req.ExportContext.Kind,
			Databases: req.ExportContext.Databases,
			FileType:  req.ExportContext.FileType,
			Uri:       req.ExportContext.URI,
		},
	}

	s.logger.Debug().
		Str("project", req.Project).
		Str("instance", req.Instance).
		Str("uri", req.ExportContext.URI).
		Msg("calling instances.export")

	op, err := svc.Instances.Export(req.Project, req.Instance, body).Context(ctx).Do()
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = describeError(err)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	result.OperationName = op.Name
	result.OperationStatus = op.Status

	s.logger.Debug().
		Str("operation", op.Name).
		Str("status", op.Status).
		Dur("duration", result.Duration).
		Msg("export operation accepted")

	return result, nil
}

func describeError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("export rejected with status %d: %w", apiErr.Code, err)
	}
	return fmt.Errorf("export call failed: %w", err)
}
