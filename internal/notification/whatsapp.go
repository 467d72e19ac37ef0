package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppImage struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type whatsAppPayload struct {
	MessagingProduct string         `json:"messaging_product"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *whatsAppText  `json:"text,omitempty"`
	Image            *whatsAppImage `json:"image,omitempty"`
}

// WhatsAppClient sends messages through the WhatsApp Cloud API
type WhatsAppClient struct {
	client  *resty.Client
	baseURL string
	token   string
	logger  *zap.Logger
}

func NewWhatsAppClient(apiURL, token string, timeout time.Duration, logger *zap.Logger) *WhatsAppClient {
	return &WhatsAppClient{
		client:  resty.New().SetTimeout(timeout),
		baseURL: strings.TrimRight(apiURL, "/"),
		token:   token,
		logger:  logger,
	}
}

// SendMessage posts a text message, or an image with caption when MediaURL is set
func (c *WhatsAppClient) SendMessage(ctx context.Context, msg Message) error {
	if c.baseURL == "" || c.token == "" {
		return ErrNotConfigured
	}

	payload := whatsAppPayload{MessagingProduct: "whatsapp", To: msg.To}
	if msg.MediaURL != "" {
		payload.Type = "image"
		payload.Image = &whatsAppImage{Link: msg.MediaURL, Caption: msg.Body}
	} else {
		payload.Type = "text"
		payload.Text = &whatsAppText{Body: msg.Body}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.baseURL + "/messages")
	if err != nil {
		return fmt.Errorf("failed to send WhatsApp message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("WhatsApp API returned status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	c.logger.Info("WhatsApp message sent",
		zap.String("to", msg.To),
		zap.String("type", payload.Type),
	)
	return nil
}
