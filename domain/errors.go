package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Account errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("email or username already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotVerified = errors.New("account not verified")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrForbidden          = errors.New("insufficient role permissions")
	ErrInvalidRequest     = errors.New("invalid request")
)

// OTP errors
var (
	ErrOTPNotSet      = errors.New("otp not set")
	ErrOTPExpired     = errors.New("otp has expired")
	ErrOTPInvalid     = errors.New("invalid otp code")
	ErrOTPThrottled   = errors.New("otp resend throttled")
	ErrInvalidPurpose = errors.New("unknown otp purpose")
)

// Token errors
var (
	ErrTokenInvalid  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token has expired")
	ErrTokenMismatch = errors.New("refresh token no longer matches the active session")
)

// ErrChallengeChanged is returned by conditional repository writes when the
// stored challenge differs from the one the caller read.
var ErrChallengeChanged = errors.New("challenge changed concurrently")

// ThrottledError reports how long a caller must wait before a fresh code can be sent
type ThrottledError struct {
	Remaining time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s: retry in %d seconds", ErrOTPThrottled, e.RetryAfterSeconds())
}

// Is lets errors.Is(err, ErrOTPThrottled) match
func (e *ThrottledError) Is(target error) bool {
	return target == ErrOTPThrottled
}

// RetryAfterSeconds rounds the remaining wait up, never below one second
func (e *ThrottledError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.Remaining.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// AuthenticationError is returned by login for every credential-related
// failure. Its message is the same generic text regardless of the reason so
// that callers cannot tell which check failed; errors.Is exposes the reason.
type AuthenticationError struct {
	Reason error
}

func (e *AuthenticationError) Error() string {
	return ErrInvalidCredentials.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Reason
}

// NewAuthenticationError wraps reason in an AuthenticationError
func NewAuthenticationError(reason error) error {
	return &AuthenticationError{Reason: reason}
}

// ErrorClass is the transport-agnostic category of a flow error
type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassConflict
	ClassNotFound
	ClassAuthentication
	ClassForbidden
	ClassOTP
	ClassThrottled
	ClassToken
)

// Classify maps an error returned by the auth flows onto its category
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassInternal
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrAlreadyVerified), errors.Is(err, ErrInvalidPurpose):
		return ClassValidation
	case errors.Is(err, ErrAccountExists):
		return ClassConflict
	case errors.Is(err, ErrAccountNotFound):
		return ClassNotFound
	case errors.Is(err, ErrAccountNotVerified), errors.Is(err, ErrAccountSuspended), errors.Is(err, ErrForbidden):
		return ClassForbidden
	case errors.Is(err, ErrInvalidCredentials):
		return ClassAuthentication
	case errors.Is(err, ErrOTPThrottled):
		return ClassThrottled
	case errors.Is(err, ErrOTPNotSet), errors.Is(err, ErrOTPExpired), errors.Is(err, ErrOTPInvalid):
		return ClassOTP
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenMismatch):
		return ClassToken
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return ClassAuthentication
	}
	return ClassInternal
}
