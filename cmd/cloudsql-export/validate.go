package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the configuration without triggering an export.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Project: %s\n", cfg.ProjectID)
	fmt.Printf("  Instance: %s\n", cfg.Instance)
	fmt.Printf("  Database: %s\n", cfg.Database)
	fmt.Printf("  Backup path: %s\n", cfg.BackupPath)
	fmt.Printf("  Fail on error: %v\n", cfg.FailOnError)
	fmt.Println()
	fmt.Println("Credentials:")
	fmt.Printf("  Type: %s\n", cfg.Credentials.Type)
	if cfg.Credentials.KeyFile != "" {
		fmt.Printf("  Key file: %s\n", cfg.Credentials.KeyFile)
	}
	if cfg.Credentials.ServiceAccount != "" {
		fmt.Printf("  Service account: %s\n", cfg.Credentials.ServiceAccount)
	}
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)
	fmt.Printf("  HTTP trigger address: %s\n", cfg.Server.Listen)

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	return nil
}
