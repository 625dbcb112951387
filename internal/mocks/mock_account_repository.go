package mocks

import (
	"context"
	"time"

	"github.com/researchguru/authsvc/domain"
)

// MockAccountRepository implements domain.AccountRepository interface for testing
type MockAccountRepository struct {
	CreateFunc                  func(ctx context.Context, account *domain.Account) error
	FindByIDFunc                func(ctx context.Context, id uint) (*domain.Account, error)
	FindByEmailFunc             func(ctx context.Context, email string) (*domain.Account, error)
	FindByUsernameFunc          func(ctx context.Context, username string) (*domain.Account, error)
	FindByRefreshTokenFunc      func(ctx context.Context, token string) (*domain.Account, error)
	ExistsByEmailOrUsernameFunc func(ctx context.Context, email, username string) (bool, error)
	ReplaceVerificationFunc     func(ctx context.Context, id uint, expectedHash string, next domain.Challenge) error
	ConsumeVerificationFunc     func(ctx context.Context, id uint, expectedHash string) error
	SaveResetFunc               func(ctx context.Context, id uint, challenge domain.Challenge) error
	ConsumeResetFunc            func(ctx context.Context, id uint, expectedHash, newPasswordHash string, revokeSession bool) error
	EstablishSessionFunc        func(ctx context.Context, id uint, refreshToken string, loginAt time.Time) error
	RotateSessionFunc           func(ctx context.Context, id uint, expected, next string) error
	RevokeSessionFunc           func(ctx context.Context, id uint, expected string) error
}

// NewMockAccountRepository creates a new MockAccountRepository with default behaviors
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

// Create stores a new account
func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	// Default behavior: success with a database-assigned ID
	account.ID = 1
	return nil
}

// FindByID finds an account by ID
func (m *MockAccountRepository) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrAccountNotFound
}

// FindByEmail finds an account by email
func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrAccountNotFound
}

// FindByUsername finds an account by username
func (m *MockAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return nil, domain.ErrAccountNotFound
}

// FindByRefreshToken finds the account currently holding token
func (m *MockAccountRepository) FindByRefreshToken(ctx context.Context, token string) (*domain.Account, error) {
	if m.FindByRefreshTokenFunc != nil {
		return m.FindByRefreshTokenFunc(ctx, token)
	}
	return nil, domain.ErrAccountNotFound
}

// ExistsByEmailOrUsername reports whether either identifier is taken
func (m *MockAccountRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	if m.ExistsByEmailOrUsernameFunc != nil {
		return m.ExistsByEmailOrUsernameFunc(ctx, email, username)
	}
	return false, nil
}

// ReplaceVerification swaps the verification challenge
func (m *MockAccountRepository) ReplaceVerification(ctx context.Context, id uint, expectedHash string, next domain.Challenge) error {
	if m.ReplaceVerificationFunc != nil {
		return m.ReplaceVerificationFunc(ctx, id, expectedHash, next)
	}
	return nil
}

// ConsumeVerification marks the account verified
func (m *MockAccountRepository) ConsumeVerification(ctx context.Context, id uint, expectedHash string) error {
	if m.ConsumeVerificationFunc != nil {
		return m.ConsumeVerificationFunc(ctx, id, expectedHash)
	}
	return nil
}

// SaveReset stores a reset challenge
func (m *MockAccountRepository) SaveReset(ctx context.Context, id uint, challenge domain.Challenge) error {
	if m.SaveResetFunc != nil {
		return m.SaveResetFunc(ctx, id, challenge)
	}
	return nil
}

// ConsumeReset stores the new password hash and clears the reset challenge
func (m *MockAccountRepository) ConsumeReset(ctx context.Context, id uint, expectedHash, newPasswordHash string, revokeSession bool) error {
	if m.ConsumeResetFunc != nil {
		return m.ConsumeResetFunc(ctx, id, expectedHash, newPasswordHash, revokeSession)
	}
	return nil
}

// EstablishSession stores the refresh token issued at login
func (m *MockAccountRepository) EstablishSession(ctx context.Context, id uint, refreshToken string, loginAt time.Time) error {
	if m.EstablishSessionFunc != nil {
		return m.EstablishSessionFunc(ctx, id, refreshToken, loginAt)
	}
	return nil
}

// RotateSession swaps the stored refresh token
func (m *MockAccountRepository) RotateSession(ctx context.Context, id uint, expected, next string) error {
	if m.RotateSessionFunc != nil {
		return m.RotateSessionFunc(ctx, id, expected, next)
	}
	return nil
}

// RevokeSession clears the stored refresh token
func (m *MockAccountRepository) RevokeSession(ctx context.Context, id uint, expected string) error {
	if m.RevokeSessionFunc != nil {
		return m.RevokeSessionFunc(ctx, id, expected)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AccountRepository = (*MockAccountRepository)(nil)
