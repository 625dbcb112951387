package mocks

import (
	"context"
	"time"

	"github.com/researchguru/authsvc/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, input domain.RegisterInput) (*domain.Account, error)
	VerifyOTPFunc      func(ctx context.Context, email, code string) (*domain.Account, error)
	ResendOTPFunc      func(ctx context.Context, email string) error
	LoginFunc          func(ctx context.Context, identifier, password string) (*domain.AuthResult, error)
	RefreshFunc        func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	LogoutFunc         func(ctx context.Context, refreshToken string) error
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, email, code, newPassword string) error
	ProvisionAdminFunc func(ctx context.Context, caller domain.AuthContext, input domain.ProvisionInput) (*domain.Account, error)
	MeFunc             func(ctx context.Context, caller domain.AuthContext) (*domain.Account, error)
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// Register registers a new account
func (m *MockAuthService) Register(ctx context.Context, input domain.RegisterInput) (*domain.Account, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	// Default behavior: return an unverified account
	now := time.Now()
	return &domain.Account{
		ID:           1,
		Name:         input.Name,
		Username:     domain.NormalizeUsername(input.Username),
		Email:        domain.NormalizeEmail(input.Email),
		Phone:        input.Phone,
		PasswordHash: "hashed_" + input.Password,
		Role:         domain.SelfServiceRole(input.Role),
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// VerifyOTP verifies the registration code
func (m *MockAuthService) VerifyOTP(ctx context.Context, email, code string) (*domain.Account, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, code)
	}
	return &domain.Account{
		ID:            1,
		Email:         domain.NormalizeEmail(email),
		Role:          domain.RoleStudent,
		Status:        domain.StatusActive,
		IsVerified:    true,
		EmailVerified: true,
	}, nil
}

// ResendOTP issues a fresh verification code
func (m *MockAuthService) ResendOTP(ctx context.Context, email string) error {
	if m.ResendOTPFunc != nil {
		return m.ResendOTPFunc(ctx, email)
	}
	return nil
}

// Login authenticates an account
func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identifier, password)
	}
	// Default behavior: return a successful auth result
	return &domain.AuthResult{
		Account: &domain.Account{
			ID:         1,
			Email:      identifier,
			Role:       domain.RoleStudent,
			Status:     domain.StatusActive,
			IsVerified: true,
		},
		AccessToken:  "mock_access_token",
		RefreshToken: "mock_refresh_token",
		ExpiresIn:    900,
	}, nil
}

// Refresh rotates the token pair
func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return &domain.AuthResult{
		Account:      &domain.Account{ID: 1, Role: domain.RoleStudent, Status: domain.StatusActive, IsVerified: true},
		AccessToken:  "new_mock_access_token",
		RefreshToken: "new_mock_refresh_token",
		ExpiresIn:    900,
	}, nil
}

// Logout revokes the session
func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, refreshToken)
	}
	return nil
}

// ForgotPassword issues a reset code
func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

// ResetPassword consumes a reset code
func (m *MockAuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, code, newPassword)
	}
	return nil
}

// ProvisionAdmin creates a pre-verified administrator
func (m *MockAuthService) ProvisionAdmin(ctx context.Context, caller domain.AuthContext, input domain.ProvisionInput) (*domain.Account, error) {
	if m.ProvisionAdminFunc != nil {
		return m.ProvisionAdminFunc(ctx, caller, input)
	}
	if caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	return &domain.Account{
		ID:            2,
		Name:          input.Name,
		Username:      domain.NormalizeUsername(input.Username),
		Email:         domain.NormalizeEmail(input.Email),
		Role:          domain.RoleAdmin,
		Status:        domain.StatusActive,
		IsVerified:    true,
		EmailVerified: true,
	}, nil
}

// Me returns the caller's account
func (m *MockAuthService) Me(ctx context.Context, caller domain.AuthContext) (*domain.Account, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx, caller)
	}
	return &domain.Account{
		ID:         caller.AccountID,
		Email:      "test@example.com",
		Role:       caller.Role,
		Status:     domain.StatusActive,
		IsVerified: true,
	}, nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
