//go:build integration

package integration

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/fgeck/cloudsql-export/internal/models"
	"github.com/fgeck/cloudsql-export/internal/services/cloudsql"
	"github.com/fgeck/cloudsql-export/internal/services/credentials"
	"github.com/fgeck/cloudsql-export/internal/services/exporter"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func getExportConfig(t *testing.T) models.ExportConfig {
	t.Helper()

	cfg := models.ExportConfig{
		ProjectID:  os.Getenv("TEST_PROJECT_ID"),
		Instance:   os.Getenv("TEST_DATABASE_INSTANCE"),
		Database:   os.Getenv("TEST_DATABASE_NAME"),
		BackupPath: os.Getenv("TEST_BACKUP_PATH"),
	}

	if cfg.ProjectID == "" || cfg.Instance == "" || cfg.Database == "" || cfg.BackupPath == "" {
		t.Skip("TEST_PROJECT_ID, TEST_DATABASE_INSTANCE, TEST_DATABASE_NAME and TEST_BACKUP_PATH must be set")
	}

	return cfg
}

func TestDefaultCredentials_Integration(t *testing.T) {
	getExportConfig(t)

	creds, err := credentials.NewDefaultProvider().Credentials(context.Background())

	require.NoError(t, err)
	require.NotNil(t, creds.TokenSource)

	token, err := creds.TokenSource.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
}

func TestExport_Integration(t *testing.T) {
	cfg := getExportConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	creds, err := credentials.NewDefaultProvider().Credentials(ctx)
	require.NoError(t, err)

	uri := exporter.DestinationURI(cfg.BackupPath, time.Now())
	result, err := cloudsql.New(testLogger()).Export(ctx, exporter.BuildRequest(cfg, creds, uri))

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.NotEmpty(t, result.OperationName)
	assert.Equal(t, uri, result.DestinationURI)
}
