package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier implements Mailer and Messenger by logging instead of delivering
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendEmail(ctx context.Context, email Email) error {
	n.logger.Info("Email not delivered (log mode)",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("htmlBytes", len(email.HTML)),
	)
	return nil
}

func (n *LogNotifier) SendMessage(ctx context.Context, msg Message) error {
	n.logger.Info("WhatsApp message not delivered (log mode)",
		zap.String("to", msg.To),
		zap.String("mediaUrl", msg.MediaURL),
		zap.String("body", msg.Body),
	)
	return nil
}
