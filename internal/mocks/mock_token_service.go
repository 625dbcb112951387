package mocks

import (
	"fmt"
	"strings"
	"time"

	"github.com/researchguru/authsvc/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	IssueAccessFunc   func(accountID uint, role domain.Role) (string, error)
	IssueRefreshFunc  func(accountID uint, role domain.Role) (string, error)
	VerifyAccessFunc  func(token string) (*domain.TokenClaims, error)
	VerifyRefreshFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// IssueAccess mints an access token
func (m *MockTokenService) IssueAccess(accountID uint, role domain.Role) (string, error) {
	if m.IssueAccessFunc != nil {
		return m.IssueAccessFunc(accountID, role)
	}
	// Default behavior: return a mock access token
	return fmt.Sprintf("access_token_%d_%s", accountID, role), nil
}

// IssueRefresh mints a refresh token
func (m *MockTokenService) IssueRefresh(accountID uint, role domain.Role) (string, error) {
	if m.IssueRefreshFunc != nil {
		return m.IssueRefreshFunc(accountID, role)
	}
	// Default behavior: return a mock refresh token
	return fmt.Sprintf("refresh_token_%d_%s", accountID, role), nil
}

// VerifyAccess validates an access token and returns claims
func (m *MockTokenService) VerifyAccess(token string) (*domain.TokenClaims, error) {
	if m.VerifyAccessFunc != nil {
		return m.VerifyAccessFunc(token)
	}
	return mockClaims(token, "access_token_", 15*time.Minute)
}

// VerifyRefresh validates a refresh token and returns claims
func (m *MockTokenService) VerifyRefresh(token string) (*domain.TokenClaims, error) {
	if m.VerifyRefreshFunc != nil {
		return m.VerifyRefreshFunc(token)
	}
	return mockClaims(token, "refresh_token_", 7*24*time.Hour)
}

// AccessTTL returns the access token lifetime
func (m *MockTokenService) AccessTTL() time.Duration { return 15 * time.Minute }

// RefreshTTL returns the refresh token lifetime
func (m *MockTokenService) RefreshTTL() time.Duration { return 7 * 24 * time.Hour }

// mockClaims decodes tokens produced by the default Issue* behaviors
func mockClaims(token, prefix string, ttl time.Duration) (*domain.TokenClaims, error) {
	if !strings.HasPrefix(token, prefix) {
		return nil, domain.ErrTokenInvalid
	}
	var (
		id   uint
		role string
	)
	if _, err := fmt.Sscanf(strings.TrimPrefix(token, prefix), "%d_%s", &id, &role); err != nil || id == 0 {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now()
	return &domain.TokenClaims{
		AccountID: id,
		Role:      domain.Role(role),
		TokenID:   token,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
