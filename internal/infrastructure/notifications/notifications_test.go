package notifications

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, htmlBody})
	return f.err
}

type fakeWhatsApp struct {
	to, body string
}

func (f *fakeWhatsApp) SendWhatsApp(ctx context.Context, to, body string) error {
	f.to, f.body = to, body
	return nil
}

func TestGateway_Mails(t *testing.T) {
	tests := []struct {
		name        string
		send        func(g *Gateway) error
		subject     string
		contains    []string
		notContains []string
	}{
		{
			name:     "verification",
			send:     func(g *Gateway) error { return g.SendVerificationCode(context.Background(), "ada@example.com", "Ada", "482913") },
			subject:  SubjectVerification,
			contains: []string{"Hello Ada,", "482913", "expires in 15 minutes"},
		},
		{
			name:     "reset",
			send:     func(g *Gateway) error { return g.SendResetCode(context.Background(), "ada@example.com", "", "112233") },
			subject:  SubjectReset,
			contains: []string{"Hello there,", "112233", "expire in 30 minutes"},
		},
		{
			name:        "admin welcome never carries a password",
			send:        func(g *Gateway) error { return g.SendAdminWelcome(context.Background(), "ada@example.com", "Ada") },
			subject:     SubjectAdminWelcome,
			contains:    []string{"Welcome aboard, Ada!", "<strong>ada@example.com</strong>"},
			notContains: []string{"password:"},
		},
		{
			name:     "names are escaped",
			send:     func(g *Gateway) error { return g.SendVerificationCode(context.Background(), "x@example.com", "<script>", "000111") },
			subject:  SubjectVerification,
			contains: []string{"&lt;script&gt;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{}
			g := NewGateway(mailer, &fakeWhatsApp{}, GatewayConfig{})

			require.NoError(t, tt.send(g))
			require.Len(t, mailer.sent, 1)
			assert.Equal(t, tt.subject, mailer.sent[0].subject)
			for _, s := range tt.contains {
				assert.Contains(t, mailer.sent[0].body, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, mailer.sent[0].body, s)
			}
		})
	}
}

func TestGateway_WhatsAppAndErrors(t *testing.T) {
	wa := &fakeWhatsApp{}
	mailer := &fakeMailer{err: errors.New("535 auth failed")}
	g := NewGateway(mailer, wa, GatewayConfig{VerifyTTL: 10 * time.Minute})

	require.NoError(t, g.SendWhatsAppCode(context.Background(), "+237651624573", "482913"))
	assert.Equal(t, "+237651624573", wa.to)
	assert.Equal(t, "Your Research Guru verification code is 482913.", wa.body)

	err := g.SendVerificationCode(context.Background(), "ada@example.com", "Ada", "482913")
	assert.EqualError(t, err, "535 auth failed")
	assert.Contains(t, mailer.sent[0].body, "expires in 10 minutes")
}

func TestSMTPMailer_Send(t *testing.T) {
	config := SMTPConfig{
		Host:     "smtp.example.com",
		Username: "mailer@example.com",
		Password: "app-password",
		From:     "Research Guru <no-reply@researchguru.pro>",
	}

	t.Run("builds an html message", func(t *testing.T) {
		m := NewSMTPMailer(config, zap.NewNop())
		m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

		var (
			gotAddr string
			gotFrom string
			gotTo   []string
			gotMsg  string
		)
		m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
			return nil
		}

		require.NoError(t, m.Send(context.Background(), "ada@example.com", "Subject line", "<p>hi</p>"))

		assert.Equal(t, "smtp.example.com:587", gotAddr)
		assert.Equal(t, "no-reply@researchguru.pro", gotFrom)
		assert.Equal(t, []string{"ada@example.com"}, gotTo)
		assert.True(t, strings.HasPrefix(gotMsg, "From: Research Guru <no-reply@researchguru.pro>\r\n"))
		assert.Contains(t, gotMsg, "Subject: Subject line\r\n")
		assert.Contains(t, gotMsg, "Content-Type: text/html; charset=\"UTF-8\"\r\n")
		assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<p>hi</p>"))
	})

	t.Run("transport error is wrapped", func(t *testing.T) {
		m := NewSMTPMailer(config, zap.NewNop())
		m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

		err := m.Send(context.Background(), "ada@example.com", "s", "b")
		assert.EqualError(t, err, "failed to send email: connection refused")
	})

	t.Run("context bounds a stuck server", func(t *testing.T) {
		m := NewSMTPMailer(config, zap.NewNop())
		release := make(chan struct{})
		defer close(release)
		m.send = func(string, smtp.Auth, string, []string, []byte) error {
			<-release
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := m.Send(ctx, "ada@example.com", "s", "b")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("missing credentials log instead of sending", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"}, zap.New(core))
		m.send = func(string, smtp.Auth, string, []string, []byte) error {
			t.Fatal("send must not be called")
			return nil
		}

		require.NoError(t, m.Send(context.Background(), "ada@example.com", "s", "b"))
		require.Equal(t, 1, logs.Len())
		assert.NotContains(t, logs.All()[0].ContextMap()["to"], "ada@")
	})

	t.Run("empty recipient", func(t *testing.T) {
		m := NewSMTPMailer(config, zap.NewNop())
		assert.ErrorIs(t, m.Send(context.Background(), "", "s", "b"), errNoRecipient)
	})
}

type fakeTwilioAPI struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeTwilioAPI) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	return &twilioApi.ApiV2010Message{}, f.err
}

func TestTwilioService_SendWhatsApp(t *testing.T) {
	t.Run("prefixes both numbers", func(t *testing.T) {
		api := &fakeTwilioAPI{}
		svc := &TwilioServiceImpl{api: api, from: "+14155238886", logger: zap.NewNop()}

		require.NoError(t, svc.SendWhatsApp(context.Background(), "+237651624573", "code 123456"))
		require.NotNil(t, api.params)
		assert.Equal(t, "whatsapp:+237651624573", *api.params.To)
		assert.Equal(t, "whatsapp:+14155238886", *api.params.From)
		assert.Equal(t, "code 123456", *api.params.Body)
	})

	t.Run("api error", func(t *testing.T) {
		svc := &TwilioServiceImpl{api: &fakeTwilioAPI{err: errors.New("21211 invalid to")}, from: "+14155238886", logger: zap.NewNop()}

		err := svc.SendWhatsApp(context.Background(), "+237651624573", "b")
		assert.EqualError(t, err, "failed to send whatsapp message: 21211 invalid to")
	})

	t.Run("cancelled context skips the call", func(t *testing.T) {
		api := &fakeTwilioAPI{}
		svc := &TwilioServiceImpl{api: api, from: "+14155238886", logger: zap.NewNop()}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, svc.SendWhatsApp(ctx, "+237651624573", "b"), context.Canceled)
		assert.Nil(t, api.params)
	})

	t.Run("unconfigured logs a mock send", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		svc := NewTwilioService(TwilioConfig{}, zap.New(core))

		assert.False(t, svc.Configured())
		require.NoError(t, svc.SendWhatsApp(context.Background(), "+237651624573", "b"))
		assert.Equal(t, 1, logs.FilterMessage("twilio not configured, whatsapp message not sent").Len())
	})

	t.Run("credentials build a client", func(t *testing.T) {
		svc := NewTwilioService(TwilioConfig{AccountSID: "AC123", AuthToken: "tok", WhatsAppFrom: "+14155238886"}, nil)
		assert.True(t, svc.Configured())
	})
}
