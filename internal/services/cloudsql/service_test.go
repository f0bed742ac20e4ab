package cloudsql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fgeck/cloudsql-export/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testRequest() models.ExportRequest {
	return models.ExportRequest{
		Credentials: &models.Credentials{
			TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"}),
			Source:      models.CredentialsDefault,
		},
		Project:  "my-project",
		Instance: "my-instance",
		ExportContext: models.ExportContext{
			Kind:      models.ExportContextKind,
			Databases: []string{"mydb"},
			FileType:  models.FileTypeSQL,
			URI:       "gs://backups/2023-01-05T10:15:30.sql.gz",
		},
	}
}

type exportBody struct {
	ExportContext struct {
		Kind      string   `json:"kind"`
		Databases []string `json:"databases"`
		FileType  string   `json:"fileType"`
		URI       string   `json:"uri"`
	} `json:"exportContext"`
}

func newTestService(t *testing.T, handler http.HandlerFunc) *Impl {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewWithOptions(testLogger(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
}

func TestExport_Success(t *testing.T) {
	var capturedMethod, capturedPath string
	var capturedBody exportBody

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&capturedBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"kind":"sql#operation","name":"op-123","status":"PENDING","operationType":"EXPORT"}`))
	})

	result, err := svc.Export(context.Background(), testRequest())

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Error)
	assert.Equal(t, "op-123", result.OperationName)
	assert.Equal(t, "PENDING", result.OperationStatus)
	assert.Equal(t, "gs://backups/2023-01-05T10:15:30.sql.gz", result.DestinationURI)

	// Verify request
	assert.Equal(t, http.MethodPost, capturedMethod)
	assert.Equal(t, "/v1/projects/my-project/instances/my-instance/export", capturedPath)
	assert.Equal(t, "sql#exportContext", capturedBody.ExportContext.Kind)
	assert.Equal(t, []string{"mydb"}, capturedBody.ExportContext.Databases)
	assert.Equal(t, "SQL", capturedBody.ExportContext.FileType)
	assert.Equal(t, "gs://backups/2023-01-05T10:15:30.sql.gz", capturedBody.ExportContext.URI)
}

func TestExport_APIError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"caller lacks cloudsql.instances.export"}}`))
	})

	result, err := svc.Export(context.Background(), testRequest())

	require.NoError(t, err)
	require.NotNil(t, result)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "status 403")
	assert.Contains(t, result.Error.Error(), "cloudsql.instances.export")
	assert.Empty(t, result.OperationName)
}

func TestExport_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	svc := NewWithOptions(testLogger(),
		option.WithEndpoint(url+"/"),
		option.WithHTTPClient(http.DefaultClient),
	)

	result, err := svc.Export(context.Background(), testRequest())

	require.NoError(t, err)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "export call failed")
}

func TestExport_NoCredentials(t *testing.T) {
	called := false
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := testRequest()
	req.Credentials = nil

	result, err := svc.Export(context.Background(), req)

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.False(t, called)
}
