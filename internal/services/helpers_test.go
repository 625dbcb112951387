package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/infrastructure/auth"
	"github.com/researchguru/authsvc/internal/infrastructure/repositories"
	"github.com/researchguru/authsvc/internal/mocks"
)

// authFixture wires an AuthServiceImpl to mock collaborators
type authFixture struct {
	accounts    *mocks.MockAccountRepository
	passwordSvc *mocks.MockPasswordService
	tokenSvc    *mocks.MockTokenService
	otpSvc      *mocks.MockOTPService
	gateway     *mocks.MockNotificationGateway
	audit       *mocks.MockAuditLogger
	notifier    *Notifier
	svc         *AuthServiceImpl
}

// newAuthFixture creates an AuthService with mock dependencies for testing
func newAuthFixture(t *testing.T, config AuthConfig) *authFixture {
	t.Helper()

	f := &authFixture{
		accounts:    mocks.NewMockAccountRepository(),
		passwordSvc: mocks.NewMockPasswordService(),
		tokenSvc:    mocks.NewMockTokenService(),
		otpSvc:      mocks.NewMockOTPService(),
		gateway:     mocks.NewMockNotificationGateway(),
		audit:       mocks.NewMockAuditLogger(),
	}
	log := zaptest.NewLogger(t)
	f.notifier = NewNotifier(f.gateway, f.audit, log, NotifierConfig{Timeout: time.Second, DefaultCountryCode: "237"})
	sessions := NewSessionRegistry(f.accounts, f.tokenSvc)
	f.svc = NewAuthService(f.accounts, sessions, f.passwordSvc, f.tokenSvc, f.otpSvc, f.notifier, f.audit, log, config)
	t.Cleanup(f.notifier.Wait)
	return f
}

// createVerifiedAccount creates a verified, active account entity for testing
func createVerifiedAccount(t *testing.T) *domain.Account {
	t.Helper()

	return &domain.Account{
		ID:            1,
		Name:          "Alice",
		Username:      "alice",
		Email:         "alice@x.com",
		PasswordHash:  "hashed_correctpw",
		Role:          domain.RoleResearcher,
		Status:        domain.StatusActive,
		IsVerified:    true,
		EmailVerified: true,
		CreatedAt:     time.Now().Add(-24 * time.Hour),
		UpdatedAt:     time.Now().Add(-time.Hour),
	}
}

// createUnverifiedAccount creates an account with an outstanding verification challenge
func createUnverifiedAccount(t *testing.T) *domain.Account {
	t.Helper()

	account := createVerifiedAccount(t)
	account.IsVerified = false
	account.EmailVerified = false
	account.Verification = &domain.Challenge{
		Purpose:   domain.PurposeVerify,
		Hash:      "hashed_" + mocks.MockOTPCode,
		ExpiresAt: time.Now().Add(15 * time.Minute),
		SentAt:    time.Now().Add(-2 * time.Minute),
	}
	return account
}

// stack wires AuthServiceImpl to a real SQLite-backed repository and real
// token, password and code services. Only delivery is mocked.
type stack struct {
	clock    *testClock
	accounts domain.AccountRepository
	tokens   *auth.JWTServiceImpl
	gateway  *mocks.MockNotificationGateway
	audit    *mocks.MockAuditLogger
	notifier *Notifier
	svc      *AuthServiceImpl
}

func newStack(t *testing.T, config AuthConfig) *stack {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&repositories.DBAccount{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	clock := newTestClock()
	tokens, err := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  "stack-access-secret",
		RefreshSecret: "stack-refresh-secret",
		Issuer:        "authsvc-test",
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	tokens.WithClock(clock.Now)

	otp := NewOTPService(OTPConfig{
		VerifyTTL:    15 * time.Minute,
		ResetTTL:     30 * time.Minute,
		ResendWindow: time.Minute,
		HashCost:     bcrypt.MinCost,
	}).WithClock(clock.Now)

	s := &stack{
		clock:    clock,
		accounts: repositories.NewAccountRepository(db),
		tokens:   tokens,
		gateway:  mocks.NewMockNotificationGateway(),
		audit:    mocks.NewMockAuditLogger(),
	}
	log := zaptest.NewLogger(t)
	s.notifier = NewNotifier(s.gateway, s.audit, log, NotifierConfig{Timeout: time.Second})
	sessions := NewSessionRegistry(s.accounts, tokens)
	s.svc = NewAuthService(s.accounts, sessions, auth.NewPasswordService(bcrypt.MinCost), tokens, otp, s.notifier, s.audit, log, config).
		WithClock(clock.Now)
	t.Cleanup(s.notifier.Wait)
	return s
}

// lastCode waits for pending deliveries and returns the newest code of kind
func (s *stack) lastCode(t *testing.T, kind, email string) string {
	t.Helper()

	s.notifier.Wait()
	code, ok := s.gateway.LastCode(kind, email)
	if !ok {
		t.Fatalf("no %s code delivered to %s", kind, email)
	}
	return code
}

// registerVerified registers and verifies an account, returning its email
func (s *stack) registerVerified(t *testing.T, username, password string) string {
	t.Helper()

	email := username + "@x.com"
	ctx := context.Background()
	if _, err := s.svc.Register(ctx, domain.RegisterInput{Name: username, Username: username, Email: email, Password: password}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := s.svc.VerifyOTP(ctx, email, s.lastCode(t, mocks.KindVerification, email)); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	return email
}
