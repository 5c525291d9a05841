package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Notification actions.
const (
	ActionWake     = "wake"
	ActionShutdown = "shutdown"
)

// TelegramMessage holds the data for a power-management notification.
type TelegramMessage struct {
	Action    string
	Success   bool
	Host      string
	StartTime time.Time
	Duration  time.Duration

	// Wake details.
	MACAddress  string
	Destination string
	Transport   string
	TargetReady bool

	// Shutdown details.
	Output string

	// Error info (if failed).
	ErrorMessage string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
