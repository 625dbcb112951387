package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/logger"
)

// NotifierConfig controls asynchronous delivery
type NotifierConfig struct {
	Timeout            time.Duration
	DefaultCountryCode string
}

// Notifier sends codes and notices through a NotificationGateway after the
// triggering state change has been persisted. Deliveries run in their own
// goroutines and their failures are logged, never returned.
type Notifier struct {
	gateway domain.NotificationGateway
	audit   domain.AuditLogger
	logger  *zap.Logger
	config  NotifierConfig
	wg      sync.WaitGroup
}

// NewNotifier creates a new notifier
func NewNotifier(gateway domain.NotificationGateway, audit domain.AuditLogger, log *zap.Logger, config NotifierConfig) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Notifier{
		gateway: gateway,
		audit:   audit,
		logger:  log,
		config:  config,
	}
}

// VerificationCode delivers a verification code by email, and over WhatsApp
// when the account has a phone number.
func (n *Notifier) VerificationCode(ctx context.Context, account *domain.Account, code string) {
	email, name := account.Email, account.Name
	n.dispatch(ctx, "verification_email", account.ID, func(ctx context.Context) error {
		return n.gateway.SendVerificationCode(ctx, email, name, code)
	})

	if account.Phone == "" {
		return
	}
	phone := domain.FormatE164(account.Phone, n.config.DefaultCountryCode)
	n.dispatch(ctx, "verification_whatsapp", account.ID, func(ctx context.Context) error {
		return n.gateway.SendWhatsAppCode(ctx, phone, code)
	})
}

// ResetCode delivers a password reset code by email only
func (n *Notifier) ResetCode(ctx context.Context, account *domain.Account, code string) {
	email, name := account.Email, account.Name
	n.dispatch(ctx, "reset_email", account.ID, func(ctx context.Context) error {
		return n.gateway.SendResetCode(ctx, email, name, code)
	})
}

// AdminWelcome tells a provisioned administrator their account exists
func (n *Notifier) AdminWelcome(ctx context.Context, account *domain.Account) {
	email, name := account.Email, account.Name
	n.dispatch(ctx, "admin_welcome_email", account.ID, func(ctx context.Context) error {
		return n.gateway.SendAdminWelcome(ctx, email, name)
	})
}

// Wait blocks until every in-flight delivery has finished
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) dispatch(ctx context.Context, channel string, accountID uint, send func(context.Context) error) {
	// Keep request-scoped values but outlive the request itself
	detached := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		sendCtx, cancel := context.WithTimeout(detached, n.config.Timeout)
		defer cancel()

		if err := send(sendCtx); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("channel", channel),
				zap.Uint("account_id", accountID),
				zap.String("request_id", logger.RequestIDFromContext(detached)),
				zap.Error(err),
			)
			if n.audit != nil {
				n.audit.LogEvent(detached, domain.NewAuditEvent(domain.NotificationFailureEvent, accountID).
					WithMetadata("channel", channel).
					WithError(err))
			}
			return
		}
		n.logger.Debug("notification delivered",
			zap.String("channel", channel),
			zap.Uint("account_id", accountID),
		)
	}()
}
