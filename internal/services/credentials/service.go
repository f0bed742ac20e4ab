// Package credentials acquires service credentials for the Cloud SQL Admin API.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/compute/metadata"
	"github.com/fgeck/cloudsql-export/internal/models"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sqladmin/v1"
)

// Scopes are the OAuth2 scopes requested for every credential source.
var Scopes = []string{sqladmin.CloudPlatformScope}

// AuthenticationError reports that no usable credentials could be acquired.
type AuthenticationError struct {
	Source string
	Err    error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("acquiring %s credentials: %v", e.Source, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Provider defines the interface for credential acquisition.
type Provider interface {
	Credentials(ctx context.Context) (*models.Credentials, error)
}

// New returns the provider selected by cfg.Type.
func New(cfg models.CredentialsConfig) (Provider, error) {
	switch cfg.Type {
	case "", models.CredentialsDefault:
		return NewDefaultProvider(), nil
	case models.CredentialsKeyFile:
		return NewKeyFileProvider(cfg.KeyFile), nil
	case models.CredentialsMetadata:
		return NewMetadataProvider(cfg.ServiceAccount), nil
	default:
		return nil, fmt.Errorf("unknown credentials type %q", cfg.Type)
	}
}

// Finder looks up Application Default Credentials (allows mocking in tests).
type Finder func(ctx context.Context, scopes ...string) (*google.Credentials, error)

// DefaultProvider resolves Application Default Credentials from the environment.
type DefaultProvider struct {
	find Finder
}

// NewDefaultProvider creates a provider backed by google.FindDefaultCredentials.
func NewDefaultProvider() *DefaultProvider {
	return &DefaultProvider{find: google.FindDefaultCredentials}
}

// NewDefaultProviderWithFinder creates a provider with a custom finder (for testing).
func NewDefaultProviderWithFinder(find Finder) *DefaultProvider {
	return &DefaultProvider{find: find}
}

// Credentials implements Provider.
func (p *DefaultProvider) Credentials(ctx context.Context) (*models.Credentials, error) {
	creds, err := p.find(ctx, Scopes...)
	if err != nil {
		return nil, &AuthenticationError{Source: models.CredentialsDefault, Err: err}
	}

	return &models.Credentials{
		TokenSource: creds.TokenSource,
		ProjectID:   creds.ProjectID,
		Source:      models.CredentialsDefault,
	}, nil
}

// KeyFileProvider loads credentials from a service-account JSON key.
type KeyFileProvider struct {
	path string
}

// NewKeyFileProvider creates a provider reading the key at path.
func NewKeyFileProvider(path string) *KeyFileProvider {
	return &KeyFileProvider{path: path}
}

// Credentials implements Provider.
func (p *KeyFileProvider) Credentials(ctx context.Context) (*models.Credentials, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, &AuthenticationError{Source: models.CredentialsKeyFile, Err: fmt.Errorf("reading key file: %w", err)}
	}

	creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
	if err != nil {
		return nil, &AuthenticationError{Source: models.CredentialsKeyFile, Err: fmt.Errorf("parsing key file: %w", err)}
	}

	return &models.Credentials{
		TokenSource: creds.TokenSource,
		ProjectID:   creds.ProjectID,
		Source:      models.CredentialsKeyFile,
	}, nil
}

// MetadataClient wraps the metadata server for mocking.
type MetadataClient interface {
	OnGCE() bool
	ProjectIDWithContext(ctx context.Context) (string, error)
}

// DefaultMetadataClient is the default implementation using cloud.google.com/go/compute/metadata.
type DefaultMetadataClient struct {
	client *metadata.Client
}

// OnGCE reports whether the metadata server is reachable.
func (c *DefaultMetadataClient) OnGCE() bool {
	return metadata.OnGCE()
}

// ProjectIDWithContext returns the project of the running workload.
func (c *DefaultMetadataClient) ProjectIDWithContext(ctx context.Context) (string, error) {
	return c.client.ProjectIDWithContext(ctx)
}

// MetadataProvider uses the identity mounted into GCE, Cloud Run or Cloud Functions.
type MetadataProvider struct {
	account string
	meta    MetadataClient
}

// NewMetadataProvider creates a provider for the given service account ("default" if empty).
func NewMetadataProvider(account string) *MetadataProvider {
	return &MetadataProvider{
		account: account,
		meta: &DefaultMetadataClient{
			client: metadata.NewClient(&http.Client{Timeout: 5 * time.Second}),
		},
	}
}

// NewMetadataProviderWithClient creates a provider with a custom metadata client (for testing).
func NewMetadataProviderWithClient(account string, meta MetadataClient) *MetadataProvider {
	return &MetadataProvider{account: account, meta: meta}
}

// Credentials implements Provider.
func (p *MetadataProvider) Credentials(ctx context.Context) (*models.Credentials, error) {
	if !p.meta.OnGCE() {
		return nil, &AuthenticationError{
			Source: models.CredentialsMetadata,
			Err:    errors.New("metadata server is not available"),
		}
	}

	projectID, err := p.meta.ProjectIDWithContext(ctx)
	if err != nil {
		return nil, &AuthenticationError{Source: models.CredentialsMetadata, Err: fmt.Errorf("resolving project: %w", err)}
	}

	account := p.account
	if account == "" {
		account = "default"
	}

	return &models.Credentials{
		TokenSource: google.ComputeTokenSource(account, Scopes...),
		ProjectID:   projectID,
		Source:      models.CredentialsMetadata,
	}, nil
}
