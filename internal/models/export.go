package models

import (
	"time"

	"golang.org/x/oauth2"
)

// Export context constants sent to the Cloud SQL Admin API.
const (
	ExportContextKind = "sql#exportContext"
	FileTypeSQL       = "SQL"
)

// Credentials is an authenticated handle for the administrative API.
type Credentials struct {
	TokenSource oauth2.TokenSource
	ProjectID   string // project the credentials belong to, may be empty
	Source      string // which provider produced them
}

// ExportContext describes what to export, in which format, and where.
type ExportContext struct {
	Kind      string
	Databases []string
	FileType  string
	URI       string
}

// ExportRequest is built fresh for every invocation and discarded afterwards.
type ExportRequest struct {
	Credentials   *Credentials
	Project       string
	Instance      string
	ExportContext ExportContext
}

// ExportResult holds the result of an export call.
type ExportResult struct {
	OperationName   string
	OperationStatus string
	DestinationURI  string
	Duration        time.Duration
	Error           error
}
