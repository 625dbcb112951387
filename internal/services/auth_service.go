package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/logger"
)

// AuthConfig holds behavior switches for the auth flows
type AuthConfig struct {
	// RevokeSessionOnReset clears the stored refresh token when a password
	// reset succeeds, forcing a fresh login.
	RevokeSessionOnReset bool
}

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	accounts    domain.AccountRepository
	sessions    domain.SessionRegistry
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	otpSvc      domain.OTPService
	notifier    *Notifier
	audit       domain.AuditLogger
	logger      *zap.Logger
	config      AuthConfig
	now         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	accounts domain.AccountRepository,
	sessions domain.SessionRegistry,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	otpSvc domain.OTPService,
	notifier *Notifier,
	audit domain.AuditLogger,
	log *zap.Logger,
	config AuthConfig,
) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{
		accounts:    accounts,
		sessions:    sessions,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		otpSvc:      otpSvc,
		notifier:    notifier,
		audit:       audit,
		logger:      log,
		config:      config,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for lastLoginAt
func (s *AuthServiceImpl) WithClock(now func() time.Time) *AuthServiceImpl {
	if now != nil {
		s.now = now
	}
	return s
}

// Register implements domain.AuthService
func (s *AuthServiceImpl) Register(ctx context.Context, input domain.RegisterInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	username := domain.NormalizeUsername(input.Username)
	email := domain.NormalizeEmail(input.Email)
	if name == "" || username == "" || email == "" || input.Password == "" {
		return nil, domain.ErrInvalidRequest
	}

	exists, err := s.accounts.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if exists {
		return nil, domain.ErrAccountExists
	}

	hashedPassword, err := s.passwordSvc.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, challenge, err := s.otpSvc.Generate(domain.PurposeVerify)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Name:         name,
		Username:     username,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hashedPassword,
		Role:         domain.SelfServiceRole(input.Role),
		Status:       domain.StatusActive,
		Verification: challenge,
	}

	// A concurrent registration can still win the unique index
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.notifier.VerificationCode(ctx, account, code)
	s.record(ctx, domain.NewAuditEvent(domain.AccountRegisteredEvent, account.ID).
		WithEmail(account.Email).
		WithMetadata("role", string(account.Role)))
	s.log(ctx).Info("account registered",
		zap.Uint("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)

	return account, nil
}

// VerifyOTP implements domain.AuthService
func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, email, code string) (*domain.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if account.IsVerified {
		return account, nil
	}

	if err := s.otpSvc.Verify(account.Verification, code); err != nil {
		s.record(ctx, domain.NewAuditEvent(domain.VerificationFailureEvent, account.ID).WithError(err))
		return nil, err
	}

	if err := s.accounts.ConsumeVerification(ctx, account.ID, account.Verification.Hash); err != nil {
		if errors.Is(err, domain.ErrChallengeChanged) {
			// A resend replaced the challenge after it was read
			return nil, domain.ErrOTPInvalid
		}
		return nil, fmt.Errorf("failed to mark account verified: %w", err)
	}

	account.IsVerified = true
	account.EmailVerified = true
	account.Verification = nil

	s.record(ctx, domain.NewAuditEvent(domain.AccountVerifiedEvent, account.ID).WithEmail(account.Email))
	return account, nil
}

// ResendOTP implements domain.AuthService
func (s *AuthServiceImpl) ResendOTP(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.IsVerified {
		return domain.ErrAlreadyVerified
	}
	if err := s.otpSvc.CanResend(account.Verification); err != nil {
		return err
	}

	code, challenge, err := s.otpSvc.Generate(domain.PurposeVerify)
	if err != nil {
		return err
	}

	var expected string
	if account.Verification.Outstanding() {
		expected = account.Verification.Hash
	}
	if err := s.accounts.ReplaceVerification(ctx, account.ID, expected, *challenge); err != nil {
		if errors.Is(err, domain.ErrChallengeChanged) {
			return s.resendConflict(ctx, account.ID)
		}
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	account.Verification = challenge
	s.notifier.VerificationCode(ctx, account, code)
	s.record(ctx, domain.NewAuditEvent(domain.VerificationResentEvent, account.ID).WithEmail(account.Email))
	return nil
}

// resendConflict explains why a resend lost its conditional write
func (s *AuthServiceImpl) resendConflict(ctx context.Context, id uint) error {
	current, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current.IsVerified {
		return domain.ErrAlreadyVerified
	}
	if err := s.otpSvc.CanResend(current.Verification); err != nil {
		return err
	}
	return &domain.ThrottledError{}
}

// Login implements domain.AuthService
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password string) (*domain.AuthResult, error) {
	account, err := s.lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, s.loginFailed(ctx, 0, domain.ErrInvalidCredentials)
		}
		return nil, err
	}

	if !s.passwordSvc.Verify(account.PasswordHash, password) {
		return nil, s.loginFailed(ctx, account.ID, domain.ErrInvalidCredentials)
	}
	if !account.IsVerified {
		return nil, s.loginFailed(ctx, account.ID, domain.ErrAccountNotVerified)
	}
	if account.Status != domain.StatusActive {
		return nil, s.loginFailed(ctx, account.ID, domain.ErrAccountSuspended)
	}

	access, refresh, err := s.issuePair(account)
	if err != nil {
		return nil, err
	}

	loginAt := s.now()
	if err := s.sessions.Establish(ctx, account.ID, refresh, loginAt); err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}
	account.Session.RefreshToken = refresh
	account.LastLoginAt = &loginAt

	s.record(ctx, domain.NewAuditEvent(domain.UserLoginEvent, account.ID).WithEmail(account.Email))
	return s.result(account, access, refresh), nil
}

func (s *AuthServiceImpl) lookup(ctx context.Context, identifier string) (*domain.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.ErrAccountNotFound
	}
	if strings.Contains(identifier, "@") {
		return s.accounts.FindByEmail(ctx, identifier)
	}
	return s.accounts.FindByUsername(ctx, identifier)
}

func (s *AuthServiceImpl) loginFailed(ctx context.Context, accountID uint, reason error) error {
	s.record(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, accountID).WithError(reason))
	return domain.NewAuthenticationError(reason)
}

// Refresh implements domain.AuthService
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	account, claims, err := s.sessions.Authorize(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenMismatch) {
			s.reuseDetected(ctx, refreshToken)
		}
		return nil, err
	}
	if !account.CanLogin() {
		return nil, domain.NewAuthenticationError(domain.ErrAccountSuspended)
	}

	access, refresh, err := s.issuePair(account)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Rotate(ctx, account.ID, refreshToken, refresh); err != nil {
		if errors.Is(err, domain.ErrTokenMismatch) {
			s.reuseDetected(ctx, refreshToken)
		}
		return nil, err
	}
	account.Session.RefreshToken = refresh

	s.record(ctx, domain.NewAuditEvent(domain.TokenRefreshedEvent, account.ID).
		WithMetadata("previous_jti", claims.TokenID))
	return s.result(account, access, refresh), nil
}

func (s *AuthServiceImpl) reuseDetected(ctx context.Context, presented string) {
	var accountID uint
	if claims, err := s.tokenSvc.VerifyRefresh(presented); err == nil {
		accountID = claims.AccountID
	}
	s.record(ctx, domain.NewAuditEvent(domain.TokenReuseEvent, accountID).WithError(domain.ErrTokenMismatch))
	s.log(ctx).Warn("rotated refresh token presented", zap.Uint("account_id", accountID))
}

// Logout implements domain.AuthService. It succeeds even when the token no
// longer belongs to any session.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	account, err := s.accounts.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up session: %w", err)
	}

	if err := s.sessions.Revoke(ctx, account.ID, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.record(ctx, domain.NewAuditEvent(domain.UserLogoutEvent, account.ID))
	return nil
}

// ForgotPassword implements domain.AuthService
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, challenge, err := s.otpSvc.Generate(domain.PurposeReset)
	if err != nil {
		return err
	}
	if err := s.accounts.SaveReset(ctx, account.ID, *challenge); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}
	account.Reset = challenge

	s.notifier.ResetCode(ctx, account, code)
	s.record(ctx, domain.NewAuditEvent(domain.PasswordResetRequestedEvent, account.ID).WithEmail(account.Email))
	return nil
}

// ResetPassword implements domain.AuthService
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return domain.ErrInvalidRequest
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrInvalidRequest
		}
		return err
	}
	if !account.Reset.Outstanding() {
		return domain.ErrInvalidRequest
	}

	if err := s.otpSvc.Verify(account.Reset, code); err != nil {
		s.record(ctx, domain.NewAuditEvent(domain.PasswordResetFailureEvent, account.ID).WithError(err))
		return err
	}

	hashedPassword, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.accounts.ConsumeReset(ctx, account.ID, account.Reset.Hash, hashedPassword, s.config.RevokeSessionOnReset)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeChanged) {
			// A newer forgot-password request replaced the code
			return domain.ErrOTPInvalid
		}
		return fmt.Errorf("failed to store new password: %w", err)
	}

	s.record(ctx, domain.NewAuditEvent(domain.PasswordResetEvent, account.ID).
		WithMetadata("session_revoked", s.config.RevokeSessionOnReset))
	return nil
}

// ProvisionAdmin implements domain.AuthService
func (s *AuthServiceImpl) ProvisionAdmin(ctx context.Context, caller domain.AuthContext, input domain.ProvisionInput) (*domain.Account, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	// The role in the token may be stale
	current, err := s.accounts.FindByID(ctx, caller.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	if current.Role != domain.RoleAdmin || !current.CanLogin() {
		return nil, domain.ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	username := domain.NormalizeUsername(input.Username)
	email := domain.NormalizeEmail(input.Email)
	if name == "" || username == "" || email == "" || input.Password == "" {
		return nil, domain.ErrInvalidRequest
	}

	exists, err := s.accounts.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if exists {
		return nil, domain.ErrAccountExists
	}

	hashedPassword, err := s.passwordSvc.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	phone := strings.TrimSpace(input.Phone)
	account := &domain.Account{
		Name:          name,
		Username:      username,
		Email:         email,
		Phone:         phone,
		PasswordHash:  hashedPassword,
		Role:          domain.RoleAdmin,
		Status:        domain.StatusActive,
		IsVerified:    true,
		EmailVerified: true,
		PhoneVerified: phone != "",
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.notifier.AdminWelcome(ctx, account)
	s.record(ctx, domain.NewAuditEvent(domain.AdminProvisionedEvent, account.ID).
		WithEmail(account.Email).
		WithMetadata("provisioned_by", caller.AccountID))
	return account, nil
}

// Me implements domain.AuthService
func (s *AuthServiceImpl) Me(ctx context.Context, caller domain.AuthContext) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, caller.AccountID)
}

func (s *AuthServiceImpl) issuePair(account *domain.Account) (string, string, error) {
	access, err := s.tokenSvc.IssueAccess(account.ID, account.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.tokenSvc.IssueRefresh(account.ID, account.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return access, refresh, nil
}

func (s *AuthServiceImpl) result(account *domain.Account, access, refresh string) *domain.AuthResult {
	return &domain.AuthResult{
		Account:      account,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokenSvc.AccessTTL().Seconds()),
	}
}

func (s *AuthServiceImpl) record(ctx context.Context, event *domain.AuditEvent) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, event)
	}
}

func (s *AuthServiceImpl) log(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, s.logger)
}

var _ domain.AuthService = (*AuthServiceImpl)(nil)
