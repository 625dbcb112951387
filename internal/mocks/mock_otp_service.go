package mocks

import (
	"time"

	"github.com/researchguru/authsvc/domain"
)

// MockOTPCode is the code produced by MockOTPService's default Generate
const MockOTPCode = "123456"

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	GenerateFunc  func(purpose domain.Purpose) (string, *domain.Challenge, error)
	VerifyFunc    func(challenge *domain.Challenge, code string) error
	CanResendFunc func(challenge *domain.Challenge) error
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Generate produces a code and its challenge
func (m *MockOTPService) Generate(purpose domain.Purpose) (string, *domain.Challenge, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(purpose)
	}
	now := time.Now()
	return MockOTPCode, &domain.Challenge{
		Purpose:   purpose,
		Hash:      "hashed_" + MockOTPCode,
		ExpiresAt: now.Add(15 * time.Minute),
		SentAt:    now,
	}, nil
}

// Verify checks a code against a challenge
func (m *MockOTPService) Verify(challenge *domain.Challenge, code string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(challenge, code)
	}
	if !challenge.Outstanding() {
		return domain.ErrOTPNotSet
	}
	// Default behavior: accept only the code matching the hash
	if challenge.Hash != "hashed_"+code {
		return domain.ErrOTPInvalid
	}
	return nil
}

// CanResend reports whether a fresh challenge may be issued
func (m *MockOTPService) CanResend(challenge *domain.Challenge) error {
	if m.CanResendFunc != nil {
		return m.CanResendFunc(challenge)
	}
	// Default behavior: allow resend with no wait time
	return nil
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
