package domain

import (
	"context"
	"time"
)

// AccountRepository defines account data access operations. Every write after
// creation is conditioned on the state the caller last read.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id uint) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByRefreshToken(ctx context.Context, token string) (*Account, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)

	ReplaceVerification(ctx context.Context, id uint, expectedHash string, next Challenge) error
	ConsumeVerification(ctx context.Context, id uint, expectedHash string) error
	SaveReset(ctx context.Context, id uint, challenge Challenge) error
	ConsumeReset(ctx context.Context, id uint, expectedHash, newPasswordHash string, revokeSession bool) error

	EstablishSession(ctx context.Context, id uint, refreshToken string, loginAt time.Time) error
	RotateSession(ctx context.Context, id uint, expected, next string) error
	RevokeSession(ctx context.Context, id uint, expected string) error
}

// AuthService defines authentication business logic
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*Account, error)
	VerifyOTP(ctx context.Context, email, code string) (*Account, error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	ProvisionAdmin(ctx context.Context, caller AuthContext, input ProvisionInput) (*Account, error)
	Me(ctx context.Context, caller AuthContext) (*Account, error)
}

// OTPService generates, verifies and throttles one-time codes. It holds no
// state of its own; challenges live on the account.
type OTPService interface {
	Generate(purpose Purpose) (code string, challenge *Challenge, err error)
	Verify(challenge *Challenge, code string) error
	CanResend(challenge *Challenge) error
}

// SessionRegistry enforces a single active refresh credential per account
type SessionRegistry interface {
	Establish(ctx context.Context, accountID uint, refreshToken string, loginAt time.Time) error
	Authorize(ctx context.Context, presented string) (*Account, *TokenClaims, error)
	Rotate(ctx context.Context, accountID uint, presented, next string) error
	Revoke(ctx context.Context, accountID uint, presented string) error
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService mints and verifies access and refresh credentials
type TokenService interface {
	IssueAccess(accountID uint, role Role) (string, error)
	IssueRefresh(accountID uint, role Role) (string, error)
	VerifyAccess(token string) (*TokenClaims, error)
	VerifyRefresh(token string) (*TokenClaims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// NotificationGateway delivers codes and notices to users. Each call may fail
// independently; callers treat failures as non-fatal.
type NotificationGateway interface {
	SendVerificationCode(ctx context.Context, email, name, code string) error
	SendResetCode(ctx context.Context, email, name, code string) error
	SendWhatsAppCode(ctx context.Context, phoneE164, code string) error
	SendAdminWelcome(ctx context.Context, email, name string) error
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
}
