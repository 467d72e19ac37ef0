package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// SESOptions configures the SES mailer. Empty keys use the default AWS credential chain.
type SESOptions struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

// SESMailer sends email through AWS SES v2
type SESMailer struct {
	client *sesv2.Client
	from   string
	logger *zap.Logger
}

func NewSESMailer(ctx context.Context, opts SESOptions, logger *zap.Logger) (*SESMailer, error) {
	if opts.From == "" {
		return nil, fmt.Errorf("sender address required for SES")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("SES mailer initialized",
		zap.String("region", opts.Region),
		zap.String("from", opts.From),
	)

	return &SESMailer{client: sesv2.NewFromConfig(cfg), from: opts.From, logger: logger}, nil
}

func (m *SESMailer) SendEmail(ctx context.Context, email Email) error {
	body := &types.Body{}
	if email.HTML != "" {
		body.Html = &types.Content{Data: aws.String(email.HTML), Charset: aws.String("UTF-8")}
	}
	if email.Text != "" {
		body.Text = &types.Content{Data: aws.String(email.Text), Charset: aws.String("UTF-8")}
	}

	output, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: email.To,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("Email sent",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.Stringp("messageId", output.MessageId),
	)
	return nil
}
