package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Verification events
	AccountRegisteredEvent   AuditEventType = "ACCOUNT_REGISTERED"
	AccountVerifiedEvent     AuditEventType = "ACCOUNT_VERIFIED"
	VerificationResentEvent  AuditEventType = "VERIFICATION_CODE_RESENT"
	VerificationFailureEvent AuditEventType = "VERIFICATION_FAILED"
	AdminProvisionedEvent    AuditEventType = "ADMIN_PROVISIONED"

	// Session events
	UserLoginEvent        AuditEventType = "USER_LOGIN"
	UserLoginFailureEvent AuditEventType = "USER_LOGIN_FAILED"
	TokenRefreshedEvent   AuditEventType = "TOKEN_REFRESHED"
	TokenReuseEvent       AuditEventType = "TOKEN_REUSE_DETECTED"
	UserLogoutEvent       AuditEventType = "USER_LOGOUT"

	// Password events
	PasswordResetRequestedEvent AuditEventType = "PASSWORD_RESET_REQUESTED"
	PasswordResetEvent          AuditEventType = "PASSWORD_RESET"
	PasswordResetFailureEvent   AuditEventType = "PASSWORD_RESET_FAILED"

	// Delivery events
	NotificationFailureEvent AuditEventType = "NOTIFICATION_FAILED"
)

// AuditEvent records a state transition of an account
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	AccountID uint                   `json:"account_id,omitempty"`
	Email     string                 `json:"email,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent)
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, accountID uint) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithEmail sets the email field
func (e *AuditEvent) WithEmail(email string) *AuditEvent {
	e.Email = email
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
