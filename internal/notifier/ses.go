package notifier

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/hivewatch/alerts/internal/models"
)

const emailCharset = "UTF-8"

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	From            string
	Endpoint        string // optional, for local SES emulators
}

// Validate validates the SES configuration.
func (c *SESConfig) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("AWS region is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	return nil
}

// sesAPI is the subset of the SES v2 client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends alert emails through AWS SES.
type SESSender struct {
	client    sesAPI
	from      string
	templates *Templates
}

// NewSESSender loads AWS configuration and creates an SES sender. Static
// credentials are used when both keys are set, otherwise the default chain.
func NewSESSender(ctx context.Context, cfg SESConfig) (*SESSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SES config: %w", err)
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(awsConfig, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newSESSender(client, cfg.From)
}

func newSESSender(client sesAPI, from string) (*SESSender, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return &SESSender{client: client, from: from, templates: templates}, nil
}

// Channel returns EMAIL.
func (s *SESSender) Channel() models.ChannelKind {
	return models.ChannelEmail
}

// Send emails msg to the address in destination.
func (s *SESSender) Send(ctx context.Context, destination string, msg Message) Result {
	plain, html, err := renderEmail(s.templates, msg)
	if err != nil {
		return Failed(fmt.Errorf("render email: %w", err))
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{destination}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(emailCharset)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(plain), Charset: aws.String(emailCharset)},
					Html: &types.Content{Data: aws.String(html), Charset: aws.String(emailCharset)},
				},
			},
		},
	})
	if err != nil {
		return Failed(err)
	}
	return Sent(aws.ToString(out.MessageId))
}

// Close is a no-op.
func (s *SESSender) Close() error {
	return nil
}
