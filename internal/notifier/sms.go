package notifier

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/hivewatch/alerts/internal/models"
)

// TwilioConfig holds Twilio configuration.
type TwilioConfig struct {
	AccountSID          string
	AuthToken           string
	MessagingServiceSID string
}

// Validate validates the Twilio configuration.
func (c *TwilioConfig) Validate() error {
	if c.AccountSID == "" || c.AuthToken == "" {
		return fmt.Errorf("twilio account SID and auth token are required")
	}
	if c.MessagingServiceSID == "" {
		return fmt.Errorf("twilio messaging service SID is required")
	}
	return nil
}

type twilioMessageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// SMSSender sends alert text messages through a Twilio messaging service.
type SMSSender struct {
	api        twilioMessageCreator
	serviceSID string
}

// NewSMSSender creates a Twilio-backed SMS sender.
func NewSMSSender(cfg TwilioConfig) (*SMSSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid twilio config: %w", err)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMSSender{api: client.Api, serviceSID: cfg.MessagingServiceSID}, nil
}

// Channel returns SMS.
func (s *SMSSender) Channel() models.ChannelKind {
	return models.ChannelSMS
}

// Send texts msg.Body to the E.164 number in destination. The Twilio client
// has no context support, so ctx is only checked before the call.
func (s *SMSSender) Send(ctx context.Context, destination string, msg Message) Result {
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(destination)
	params.SetMessagingServiceSid(s.serviceSID)
	params.SetBody(msg.Body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return Failed(err)
	}
	if resp == nil || resp.Sid == nil {
		return Sent("")
	}
	return Sent(*resp.Sid)
}

// Close is a no-op.
func (s *SMSSender) Close() error {
	return nil
}
