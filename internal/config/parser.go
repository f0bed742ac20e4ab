// Package config provides configuration parsing from environment variables and YAML files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fgeck/cloudsql-export/internal/models"
	"github.com/spf13/viper"
)

// envBindings maps configuration keys to the environment variables that set them.
var envBindings = map[string]string{
	"project_id":                  "PROJECT_ID",
	"database_instance":           "DATABASE_INSTANCE",
	"database_name":               "DATABASE_NAME",
	"backup_path":                 "BACKUP_PATH",
	"fail_on_error":               "FAIL_ON_ERROR",
	"credentials.type":            "CREDENTIALS_TYPE",
	"credentials.key_file":        "CREDENTIALS_KEY_FILE",
	"credentials.service_account": "CREDENTIALS_SERVICE_ACCOUNT",
	"telegram.bot_token":          "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":            "TELEGRAM_CHAT_ID",
	"server.listen":               "LISTEN_ADDR",
}

// Parser handles configuration parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser with environment bindings in place.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return &Parser{v: v}
}

// LoadEnv loads configuration from environment variables only.
func (p *Parser) LoadEnv() (*models.ExportConfig, error) {
	return p.parse()
}

// LoadFile loads configuration from a file path. Environment variables take precedence.
func (p *Parser) LoadFile(path string) (*models.ExportConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.ExportConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.ExportConfig, error) {
	cfg := &models.ExportConfig{
		ProjectID:   p.getString("project_id"),
		Instance:    p.getString("database_instance"),
		Database:    p.getString("database_name"),
		BackupPath:  p.getString("backup_path"),
		FailOnError: p.v.GetBool("fail_on_error"),
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID is required")
	}
	if cfg.Instance == "" {
		return nil, fmt.Errorf("DATABASE_INSTANCE is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("DATABASE_NAME is required")
	}
	if cfg.BackupPath == "" {
		return nil, fmt.Errorf("BACKUP_PATH is required")
	}

	// Parse credentials.
	cfg.Credentials = models.CredentialsConfig{
		Type:           p.getString("credentials.type"),
		KeyFile:        p.getString("credentials.key_file"),
		ServiceAccount: p.getString("credentials.service_account"),
	}

	if cfg.Credentials.Type == "" {
		cfg.Credentials.Type = models.CredentialsDefault
	}
	validTypes := map[string]bool{
		models.CredentialsDefault:  true,
		models.CredentialsKeyFile:  true,
		models.CredentialsMetadata: true,
	}
	if !validTypes[cfg.Credentials.Type] {
		return nil, fmt.Errorf("credentials.type must be one of: default, key_file, metadata")
	}
	if cfg.Credentials.Type == models.CredentialsKeyFile && cfg.Credentials.KeyFile == "" {
		return nil, fmt.Errorf("credentials.key_file is required when credentials.type is key_file")
	}
	if cfg.Credentials.Type == models.CredentialsMetadata && cfg.Credentials.ServiceAccount == "" {
		cfg.Credentials.ServiceAccount = "default"
	}

	// Parse server settings.
	cfg.Server = models.ServerConfig{
		Listen: p.getString("server.listen"),
	}
	if cfg.Server.Listen == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.Server.Listen = ":" + port
		} else {
			cfg.Server.Listen = ":8080"
		}
	}

	// Parse optional Telegram config.
	botToken := p.getString("telegram.bot_token")
	chatID := p.getString("telegram.chat_id")
	if botToken != "" || chatID != "" {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: botToken,
			ChatID:   chatID,
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// getString reads a key and expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) getString(key string) string {
	return os.ExpandEnv(p.v.GetString(key))
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.ExportConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID is required")
	}

	if cfg.Instance == "" {
		return fmt.Errorf("DATABASE_INSTANCE is required")
	}

	if cfg.Database == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if cfg.BackupPath == "" {
		return fmt.Errorf("BACKUP_PATH is required")
	}

	// Cloud SQL only exports to Cloud Storage.
	if !strings.HasPrefix(cfg.BackupPath, "gs://") {
		return fmt.Errorf("BACKUP_PATH must be a gs:// URI")
	}

	return nil
}
