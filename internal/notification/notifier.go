// Package notification delivers capture and report shares by email and WhatsApp.
package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/yugmi/sense-api/internal/config"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when a channel is used without credentials
var ErrNotConfigured = errors.New("messaging channel not configured")

// Email is one outbound email. Text is the plain alternative of HTML.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Message is one outbound chat message with an optional media link
type Message struct {
	To       string
	Body     string
	MediaURL string
}

type Mailer interface {
	SendEmail(ctx context.Context, email Email) error
}

type Messenger interface {
	SendMessage(ctx context.Context, msg Message) error
}

// New builds the mailer and messenger selected by notification.mode.
// "log" writes messages to the logger instead of delivering them.
func New(ctx context.Context, cfg *config.NotificationConfig, logger *zap.Logger) (Mailer, Messenger, error) {
	switch cfg.Mode {
	case "log", "":
		logger.Info("Notifications in log mode, nothing will be delivered")
		notifier := NewLogNotifier(logger)
		return notifier, notifier, nil
	case "live":
		mailer, err := NewSESMailer(ctx, SESOptions{
			Region:    cfg.SESRegion,
			AccessKey: cfg.SESAccessKey,
			SecretKey: cfg.SESSecretKey,
			From:      cfg.EmailFrom,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		messenger := NewWhatsAppClient(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.WhatsAppTimeoutDuration(), logger)
		return mailer, messenger, nil
	default:
		return nil, nil, fmt.Errorf("unsupported notification mode: %s", cfg.Mode)
	}
}
