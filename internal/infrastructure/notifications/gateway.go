package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/researchguru/authsvc/domain"
)

var errNoRecipient = errors.New("recipient is empty")

// Mailer sends one HTML email
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// WhatsAppSender sends one WhatsApp text message to an E.164 number
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// Subjects of the mails sent by Gateway
const (
	SubjectVerification = "Verify your Research Guru account"
	SubjectReset        = "Password reset code"
	SubjectAdminWelcome = "Admin account created"
)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<div style="font-family: Arial, sans-serif; color: #222;">
  <h2>Hello {{.Name}},</h2>
  <p>Your Research Guru verification code is:</p>
  <h1 style="letter-spacing: 6px;">{{.Code}}</h1>
  <p>This code expires in {{.Minutes}} minutes.</p>
  <p>If you didn't request it, simply ignore this email.</p>
</div>
`))

	resetTmpl = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; color: #222;">
  <h2>Hello {{.Name}},</h2>
  <p>Use the code below to reset your password:</p>
  <h1 style="letter-spacing: 6px;">{{.Code}}</h1>
  <p>This code will expire in {{.Minutes}} minutes.</p>
</div>
`))

	adminWelcomeTmpl = template.Must(template.New("admin_welcome").Parse(`<div style="font-family: Arial, sans-serif; color:#333;">
  <h2>Welcome aboard, {{.Name}}!</h2>
  <p>Your Research Guru admin account has been created.</p>
  <p>You can now sign in using the email <strong>{{.Email}}</strong>.</p>
  <p>For security, please change your password after the first login.</p>
  <p>Best regards,<br />Research Guru</p>
</div>
`))
)

type mailData struct {
	Name    string
	Email   string
	Code    string
	Minutes int
}

// GatewayConfig carries the code lifetimes quoted in the mails
type GatewayConfig struct {
	VerifyTTL time.Duration
	ResetTTL  time.Duration
}

// Gateway implements domain.NotificationGateway over a Mailer and a
// WhatsAppSender
type Gateway struct {
	mailer   Mailer
	whatsapp WhatsAppSender
	config   GatewayConfig
}

// NewGateway creates a new notification gateway
func NewGateway(mailer Mailer, whatsapp WhatsAppSender, config GatewayConfig) *Gateway {
	if config.VerifyTTL <= 0 {
		config.VerifyTTL = 15 * time.Minute
	}
	if config.ResetTTL <= 0 {
		config.ResetTTL = 30 * time.Minute
	}
	return &Gateway{mailer: mailer, whatsapp: whatsapp, config: config}
}

// SendVerificationCode implements domain.NotificationGateway
func (g *Gateway) SendVerificationCode(ctx context.Context, email, name, code string) error {
	body, err := render(verificationTmpl, mailData{Name: greeting(name), Code: code, Minutes: minutes(g.config.VerifyTTL)})
	if err != nil {
		return err
	}
	return g.mailer.Send(ctx, email, SubjectVerification, body)
}

// SendResetCode implements domain.NotificationGateway
func (g *Gateway) SendResetCode(ctx context.Context, email, name, code string) error {
	body, err := render(resetTmpl, mailData{Name: greeting(name), Code: code, Minutes: minutes(g.config.ResetTTL)})
	if err != nil {
		return err
	}
	return g.mailer.Send(ctx, email, SubjectReset, body)
}

// SendWhatsAppCode implements domain.NotificationGateway
func (g *Gateway) SendWhatsAppCode(ctx context.Context, phoneE164, code string) error {
	return g.whatsapp.SendWhatsApp(ctx, phoneE164, fmt.Sprintf("Your Research Guru verification code is %s.", code))
}

// SendAdminWelcome implements domain.NotificationGateway
func (g *Gateway) SendAdminWelcome(ctx context.Context, email, name string) error {
	body, err := render(adminWelcomeTmpl, mailData{Name: greeting(name), Email: email})
	if err != nil {
		return err
	}
	return g.mailer.Send(ctx, email, SubjectAdminWelcome, body)
}

func render(t *template.Template, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s mail: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func greeting(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}

var _ domain.NotificationGateway = (*Gateway)(nil)
