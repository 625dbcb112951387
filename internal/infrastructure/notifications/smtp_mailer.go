package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/researchguru/authsvc/internal/logger"
)

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // full From header, e.g. "Research Guru <no-reply@researchguru.pro>"
}

// sendFunc matches smtp.SendMail
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML mail over SMTP. Port 465 uses implicit TLS, any other
// port upgrades with STARTTLS when the server offers it.
type SMTPMailer struct {
	config SMTPConfig
	logger *zap.Logger
	send   sendFunc
	now    func() time.Time
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(config SMTPConfig, log *zap.Logger) *SMTPMailer {
	if log == nil {
		log = zap.NewNop()
	}
	if config.Port == 0 {
		config.Port = 587
	}
	m := &SMTPMailer{config: config, logger: log, now: time.Now}
	if config.Port == 465 {
		m.send = sendMailTLS
	} else {
		m.send = smtp.SendMail
	}
	return m
}

// Configured reports whether credentials are present
func (m *SMTPMailer) Configured() bool {
	return m.config.Host != "" && m.config.Username != "" && m.config.Password != ""
}

// Send delivers one HTML message. Without credentials the message is logged
// (recipient masked, body omitted) and dropped.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return errNoRecipient
	}
	if !m.Configured() {
		m.logger.Warn("smtp not configured, email not sent",
			zap.String("to", logger.MaskEmail(to)),
			zap.String("subject", subject))
		return nil
	}

	fromAddr := envelopeAddress(m.config.From, m.config.Username)
	msg := m.buildMessage(to, subject, htmlBody)
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	// net/smtp has no context support; give up waiting once ctx is done
	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, fromAddr, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
}

func (m *SMTPMailer) buildMessage(to, subject, htmlBody string) []byte {
	from := m.config.From
	if from == "" {
		from = m.config.Username
	}

	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("Date: " + m.now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(htmlBody)
	return []byte(sb.String())
}

// envelopeAddress extracts the bare address from a "Name <addr>" header
func envelopeAddress(from, fallback string) string {
	if from == "" {
		return fallback
	}
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}

func sendMailTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Auth(auth); err != nil {
		return err
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}
