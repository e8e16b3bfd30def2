package notifier

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/hivewatch/alerts/internal/models"
)

// PostmarkConfig holds Postmark configuration.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	From         string
	Tag          string
}

// Validate validates the Postmark configuration.
func (c *PostmarkConfig) Validate() error {
	if c.ServerToken == "" {
		return fmt.Errorf("postmark server token is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	return nil
}

type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender sends alert emails through Postmark.
type PostmarkSender struct {
	client    postmarkAPI
	config    PostmarkConfig
	templates *Templates
}

// NewPostmarkSender creates a Postmark-backed email sender.
func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postmark config: %w", err)
	}
	return newPostmarkSender(postmark.NewClient(cfg.ServerToken, cfg.AccountToken), cfg)
}

func newPostmarkSender(client postmarkAPI, cfg PostmarkConfig) (*PostmarkSender, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	if cfg.Tag == "" {
		cfg.Tag = "alert"
	}
	return &PostmarkSender{client: client, config: cfg, templates: templates}, nil
}

// Channel returns EMAIL.
func (p *PostmarkSender) Channel() models.ChannelKind {
	return models.ChannelEmail
}

// Send emails msg to the address in destination.
func (p *PostmarkSender) Send(ctx context.Context, destination string, msg Message) Result {
	plain, html, err := renderEmail(p.templates, msg)
	if err != nil {
		return Failed(fmt.Errorf("render email: %w", err))
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.config.From,
		To:       destination,
		Subject:  msg.Subject,
		Tag:      p.config.Tag,
		TextBody: plain,
		HTMLBody: html,
	})
	if err != nil {
		return Failed(err)
	}
	if resp.ErrorCode > 0 {
		return Failed(fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return Sent(resp.MessageID)
}

// Close is a no-op.
func (p *PostmarkSender) Close() error {
	return nil
}
