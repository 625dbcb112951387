package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/researchguru/authsvc/domain"
)

// respondError maps a flow error onto a status code and client message.
// Unclassified errors are attached to the context for the access log and
// answered with a generic 500.
func respondError(c *gin.Context, err error) {
	// Login failures share one answer whatever check failed
	var authErr *domain.AuthenticationError
	if errors.As(err, &authErr) {
		fail(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	switch domain.Classify(err) {
	case domain.ClassThrottled:
		var throttled *domain.ThrottledError
		seconds := 1
		if errors.As(err, &throttled) {
			seconds = throttled.RetryAfterSeconds()
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":           false,
			"message":           fmt.Sprintf("Please wait %d seconds before requesting a new OTP.", seconds),
			"retryAfterSeconds": seconds,
		})
	case domain.ClassValidation:
		if errors.Is(err, domain.ErrAlreadyVerified) {
			fail(c, http.StatusBadRequest, "User already verified.")
			return
		}
		fail(c, http.StatusBadRequest, "Invalid request.")
	case domain.ClassConflict:
		fail(c, http.StatusConflict, "Email or username already in use.")
	case domain.ClassNotFound:
		fail(c, http.StatusNotFound, "User not found.")
	case domain.ClassForbidden:
		switch {
		case errors.Is(err, domain.ErrAccountNotVerified):
			fail(c, http.StatusForbidden, "Please verify your account first.")
		case errors.Is(err, domain.ErrAccountSuspended):
			fail(c, http.StatusForbidden, "Account suspended. Contact support.")
		default:
			fail(c, http.StatusForbidden, "Forbidden: insufficient role permissions")
		}
	case domain.ClassAuthentication:
		fail(c, http.StatusUnauthorized, "Invalid credentials.")
	case domain.ClassOTP:
		switch {
		case errors.Is(err, domain.ErrOTPNotSet):
			fail(c, http.StatusBadRequest, "OTP not set. Request a new one.")
		case errors.Is(err, domain.ErrOTPExpired):
			fail(c, http.StatusBadRequest, "OTP has expired. Request a new one.")
		default:
			fail(c, http.StatusBadRequest, "Invalid OTP.")
		}
	case domain.ClassToken:
		if errors.Is(err, domain.ErrTokenMismatch) {
			fail(c, http.StatusUnauthorized, "Refresh token invalid.")
			return
		}
		fail(c, http.StatusUnauthorized, "Refresh token expired or invalid.")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
