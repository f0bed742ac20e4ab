// Package models contains the data structures used throughout cloudsql-export.
package models

// ExportConfig holds the complete configuration for an export invocation.
type ExportConfig struct {
	ProjectID   string
	Instance    string
	Database    string
	BackupPath  string // bucket/prefix, e.g. gs://my-backups/db
	FailOnError bool   // if true, export errors are returned to the caller instead of only logged
	Credentials CredentialsConfig
	Server      ServerConfig
	Telegram    *TelegramConfig // nil if not configured
}

// Credential source types.
const (
	CredentialsDefault  = "default"
	CredentialsKeyFile  = "key_file"
	CredentialsMetadata = "metadata"
)

// CredentialsConfig selects how service credentials are acquired.
type CredentialsConfig struct {
	Type           string // "default" (default), "key_file", "metadata"
	KeyFile        string // service-account JSON key, for key_file
	ServiceAccount string // metadata service account, for metadata
}

// ServerConfig holds settings for the HTTP trigger.
type ServerConfig struct {
	Listen string
}
