package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/researchguru/authsvc/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpFloor = 100000
	otpSpan  = 900000
)

// OTPServiceImpl implements domain.OTPService. It keeps no state; challenges
// are persisted on the account by the caller.
type OTPServiceImpl struct {
	config OTPConfig
	now    func() time.Time
}

type OTPConfig struct {
	VerifyTTL    time.Duration
	ResetTTL     time.Duration
	ResendWindow time.Duration
	HashCost     int
}

// DefaultOTPConfig returns the stock TTLs and resend window
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{
		VerifyTTL:    15 * time.Minute,
		ResetTTL:     30 * time.Minute,
		ResendWindow: 60 * time.Second,
		HashCost:     bcrypt.DefaultCost,
	}
}

// NewOTPService creates a new one-time code service
func NewOTPService(config OTPConfig) *OTPServiceImpl {
	defaults := DefaultOTPConfig()
	if config.VerifyTTL <= 0 {
		config.VerifyTTL = defaults.VerifyTTL
	}
	if config.ResetTTL <= 0 {
		config.ResetTTL = defaults.ResetTTL
	}
	if config.ResendWindow <= 0 {
		config.ResendWindow = defaults.ResendWindow
	}
	if config.HashCost < bcrypt.MinCost || config.HashCost > bcrypt.MaxCost {
		config.HashCost = defaults.HashCost
	}
	return &OTPServiceImpl{config: config, now: time.Now}
}

// WithClock replaces the time source
func (s *OTPServiceImpl) WithClock(now func() time.Time) *OTPServiceImpl {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate implements domain.OTPService
func (s *OTPServiceImpl) Generate(purpose domain.Purpose) (string, *domain.Challenge, error) {
	ttl, err := s.ttl(purpose)
	if err != nil {
		return "", nil, err
	}

	code, err := generateSecureCode()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.config.HashCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash OTP code: %w", err)
	}

	now := s.now()
	return code, &domain.Challenge{
		Purpose:   purpose,
		Hash:      string(hash),
		ExpiresAt: now.Add(ttl),
		SentAt:    now,
	}, nil
}

// Verify implements domain.OTPService. A nil return means the caller must
// clear the challenge before anything else can reuse it.
func (s *OTPServiceImpl) Verify(challenge *domain.Challenge, code string) error {
	if !challenge.Outstanding() {
		return domain.ErrOTPNotSet
	}
	if s.now().After(challenge.ExpiresAt) {
		return domain.ErrOTPExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(challenge.Hash), []byte(code)); err != nil {
		return domain.ErrOTPInvalid
	}
	return nil
}

// CanResend implements domain.OTPService
func (s *OTPServiceImpl) CanResend(challenge *domain.Challenge) error {
	if !challenge.Outstanding() || challenge.SentAt.IsZero() {
		return nil
	}
	remaining := challenge.SentAt.Add(s.config.ResendWindow).Sub(s.now())
	if remaining > 0 {
		return &domain.ThrottledError{Remaining: remaining}
	}
	return nil
}

func (s *OTPServiceImpl) ttl(purpose domain.Purpose) (time.Duration, error) {
	switch purpose {
	case domain.PurposeVerify:
		return s.config.VerifyTTL, nil
	case domain.PurposeReset:
		return s.config.ResetTTL, nil
	}
	return 0, domain.ErrInvalidPurpose
}

// generateSecureCode draws a six digit code uniformly from [100000, 999999]
func generateSecureCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpFloor, 10), nil
}

var _ domain.OTPService = (*OTPServiceImpl)(nil)
