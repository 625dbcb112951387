package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/researchguru/authsvc/internal/logger"
)

// TwilioConfig holds WhatsApp sender settings
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string // E.164 sender, without the "whatsapp:" prefix
}

// messageCreator is the part of the Twilio REST API we use
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioServiceImpl sends WhatsApp messages through Twilio
type TwilioServiceImpl struct {
	api    messageCreator
	from   string
	logger *zap.Logger
}

// NewTwilioService creates a new Twilio WhatsApp sender. Missing credentials
// yield a sender that only logs.
func NewTwilioService(config TwilioConfig, log *zap.Logger) *TwilioServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	svc := &TwilioServiceImpl{from: config.WhatsAppFrom, logger: log}
	if config.AccountSID != "" && config.AuthToken != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: config.AccountSID,
			Password: config.AuthToken,
		})
		svc.api = client.Api
	}
	return svc
}

// Configured reports whether messages will actually be sent
func (t *TwilioServiceImpl) Configured() bool {
	return t.api != nil && t.from != ""
}

// SendWhatsApp delivers body to an E.164 number
func (t *TwilioServiceImpl) SendWhatsApp(ctx context.Context, to, body string) error {
	if to == "" {
		return errNoRecipient
	}
	if !t.Configured() {
		t.logger.Warn("twilio not configured, whatsapp message not sent",
			zap.String("to", logger.MaskPhone(to)))
		return nil
	}
	// The Twilio client takes no context
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsAppAddress(to))
	params.SetFrom(whatsAppAddress(t.from))
	params.SetBody(body)

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	return nil
}

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
