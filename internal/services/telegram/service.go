// Package telegram sends wake and shutdown notifications to a Telegram chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		baseURL: "https://api.telegram.org",
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// sendMessageRequest is the request body for Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendNotification posts a wake or shutdown outcome to the configured chat.
func (s *Impl) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Info().
		Str("chat_id", cfg.ChatID).
		Str("action", msg.Action).
		Str("host", msg.Host).
		Bool("success", msg.Success).
		Msg("sending Telegram notification")

	reqBody := sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      formatMessage(msg),
		ParseMode: "HTML",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		result.Error = fmt.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("failed to send request: %w", err)
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("telegram API returned status %d", resp.StatusCode)
		return result, nil
	}

	result.MessageSent = true
	s.logger.Debug().Str("host", msg.Host).Msg("Telegram notification sent")

	return result, nil
}

func formatMessage(msg models.TelegramMessage) string {
	var b bytes.Buffer

	action := "Wake"
	if msg.Action == models.ActionShutdown {
		action = "Shutdown"
	}

	if msg.Success {
		fmt.Fprintf(&b, "\u2705 <b>%s Successful</b>\n\n", action)
	} else {
		fmt.Fprintf(&b, "\u274c <b>%s Failed</b>\n\n", action)
	}

	fmt.Fprintf(&b, "<b>Host:</b> %s\n", escapeHTML(msg.Host))
	if msg.MACAddress != "" {
		fmt.Fprintf(&b, "<b>MAC:</b> <code>%s</code>\n", escapeHTML(msg.MACAddress))
	}
	fmt.Fprintf(&b, "<b>Started:</b> %s\n", msg.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "<b>Duration:</b> %s\n", msg.Duration.Round(time.Second))

	if !msg.Success {
		b.WriteString("\n<b>Error Details:</b>\n")
		fmt.Fprintf(&b, "  \u2022 Error: <code>%s</code>\n", escapeHTML(msg.ErrorMessage))
		return b.String()
	}

	switch msg.Action {
	case models.ActionShutdown:
		if msg.Output != "" {
			fmt.Fprintf(&b, "\n<b>Output:</b>\n<pre>%s</pre>\n", escapeHTML(msg.Output))
		}
	default:
		b.WriteString("\n<b>Magic Packet:</b>\n")
		fmt.Fprintf(&b, "  \u2022 Destination: <code>%s</code>\n", escapeHTML(msg.Destination))
		fmt.Fprintf(&b, "  \u2022 Transport: %s\n", escapeHTML(msg.Transport))
		if msg.TargetReady {
			b.WriteString("  \u2022 Target: reachable\n")
		}
	}

	return b.String()
}

// escapeHTML escapes HTML special characters.
func escapeHTML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
