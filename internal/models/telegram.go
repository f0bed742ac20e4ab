package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for an export notification.
type TelegramMessage struct {
	Success        bool
	ProjectID      string
	Instance       string
	Database       string
	DestinationURI string
	StartTime      time.Time
	Duration       time.Duration

	// Set on success.
	OperationName string

	// Set on failure.
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
