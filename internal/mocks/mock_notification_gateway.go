package mocks

import (
	"context"
	"sync"

	"github.com/researchguru/authsvc/domain"
)

// Notification kinds recorded by MockNotificationGateway
const (
	KindVerification = "verification"
	KindReset        = "reset"
	KindWhatsApp     = "whatsapp"
	KindAdminWelcome = "admin_welcome"
)

// SentNotification records one delivery attempt
type SentNotification struct {
	Kind string
	To   string
	Name string
	Code string
}

// MockNotificationGateway implements domain.NotificationGateway interface for
// testing. It is safe for concurrent use since deliveries run asynchronously.
type MockNotificationGateway struct {
	SendVerificationCodeFunc func(ctx context.Context, email, name, code string) error
	SendResetCodeFunc        func(ctx context.Context, email, name, code string) error
	SendWhatsAppCodeFunc     func(ctx context.Context, phoneE164, code string) error
	SendAdminWelcomeFunc     func(ctx context.Context, email, name string) error

	mu   sync.Mutex
	sent []SentNotification
}

// NewMockNotificationGateway creates a new MockNotificationGateway with default behaviors
func NewMockNotificationGateway() *MockNotificationGateway {
	return &MockNotificationGateway{}
}

// SendVerificationCode delivers a verification code by email
func (m *MockNotificationGateway) SendVerificationCode(ctx context.Context, email, name, code string) error {
	m.record(SentNotification{Kind: KindVerification, To: email, Name: name, Code: code})
	if m.SendVerificationCodeFunc != nil {
		return m.SendVerificationCodeFunc(ctx, email, name, code)
	}
	return nil
}

// SendResetCode delivers a password reset code by email
func (m *MockNotificationGateway) SendResetCode(ctx context.Context, email, name, code string) error {
	m.record(SentNotification{Kind: KindReset, To: email, Name: name, Code: code})
	if m.SendResetCodeFunc != nil {
		return m.SendResetCodeFunc(ctx, email, name, code)
	}
	return nil
}

// SendWhatsAppCode delivers a verification code over WhatsApp
func (m *MockNotificationGateway) SendWhatsAppCode(ctx context.Context, phoneE164, code string) error {
	m.record(SentNotification{Kind: KindWhatsApp, To: phoneE164, Code: code})
	if m.SendWhatsAppCodeFunc != nil {
		return m.SendWhatsAppCodeFunc(ctx, phoneE164, code)
	}
	return nil
}

// SendAdminWelcome notifies a provisioned administrator
func (m *MockNotificationGateway) SendAdminWelcome(ctx context.Context, email, name string) error {
	m.record(SentNotification{Kind: KindAdminWelcome, To: email, Name: name})
	if m.SendAdminWelcomeFunc != nil {
		return m.SendAdminWelcomeFunc(ctx, email, name)
	}
	return nil
}

// Sent returns a copy of every recorded delivery attempt
func (m *MockNotificationGateway) Sent() []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentNotification, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastCode returns the most recent code of the given kind sent to recipient
func (m *MockNotificationGateway) LastCode(kind, to string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind && m.sent[i].To == to {
			return m.sent[i].Code, true
		}
	}
	return "", false
}

func (m *MockNotificationGateway) record(n SentNotification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
}

// Compile-time interface compliance verification
var _ domain.NotificationGateway = (*MockNotificationGateway)(nil)
