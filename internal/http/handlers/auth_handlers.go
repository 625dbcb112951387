package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/http/middleware"
)

// CookieConfig controls the token cookies. Production deployments serve the
// client from another origin, so they need SameSite=None with Secure.
type CookieConfig struct {
	Secure     bool
	SameSite   http.SameSite
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authSvc domain.AuthService
	cookies CookieConfig
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, cookies CookieConfig) *AuthHandlers {
	useJSONFieldNames()
	if cookies.SameSite == 0 {
		cookies.SameSite = http.SameSiteLaxMode
	}
	return &AuthHandlers{authSvc: authSvc, cookies: cookies}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=3"`
	Username string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=RESEARCHER STUDENT"`
}

// VerifyOTPRequest represents OTP verification request
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

// EmailRequest carries a single email address (resend-otp, forgot-password)
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// ResetPasswordRequest represents password reset request
type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	OTP             string `json:"otp" binding:"required,len=6"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=NewPassword"`
}

// tokenBody is the optional body of refresh-token and logout
type tokenBody struct {
	RefreshToken string `json:"refreshToken"`
}

// Register handles self-service registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}

	account, err := h.authSvc.Register(c.Request.Context(), domain.RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Registration successful. Check your email/phone for the verification code.", account.Sanitize())
}

// VerifyOTP handles account verification
func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bind(c, &req) {
		return
	}

	account, err := h.authSvc.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Account verified successfully.", account.Sanitize())
}

// ResendOTP handles verification code resends
func (h *AuthHandlers) ResendOTP(c *gin.Context) {
	var req EmailRequest
	if !bind(c, &req) {
		return
	}

	if err := h.authSvc.ResendOTP(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "OTP resent successfully.", nil)
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setTokenCookies(c, result)
	respond(c, http.StatusOK, "Login successful.", gin.H{
		"user":         result.Account.Sanitize(),
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"expiresIn":    result.ExpiresIn,
	})
}

// Refresh rotates the token pair. The refresh token may come from the
// cookie, an "Authorization: Bearer" header or the body.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	token := h.presentedRefreshToken(c, middleware.BearerToken(c))
	if token == "" {
		fail(c, http.StatusUnauthorized, "Refresh token missing.")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setTokenCookies(c, result)
	respond(c, http.StatusOK, "Tokens refreshed.", gin.H{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"expiresIn":    result.ExpiresIn,
	})
}

// Logout revokes the session. The Authorization header carries the access
// token here, so a header-borne refresh token uses X-Refresh-Token.
func (h *AuthHandlers) Logout(c *gin.Context) {
	token := h.presentedRefreshToken(c, c.GetHeader("X-Refresh-Token"))

	if err := h.authSvc.Logout(c.Request.Context(), token); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Logout failed.")
		return
	}

	h.clearTokenCookies(c)
	respond(c, http.StatusOK, "Logged out successfully.", nil)
}

// ForgotPassword issues a password reset code
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	if !bind(c, &req) {
		return
	}

	if err := h.authSvc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Password reset OTP sent.", nil)
}

// ResetPassword consumes a reset code and sets the new password
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := h.authSvc.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Password reset successful.", nil)
}

// Me returns the caller's sanitized account
func (h *AuthHandlers) Me(c *gin.Context) {
	caller, ok := middleware.AuthContextFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Not authorized, no token")
		return
	}

	account, err := h.authSvc.Me(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", account.Sanitize())
}

func (h *AuthHandlers) presentedRefreshToken(c *gin.Context, header string) string {
	if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	if header != "" {
		return header
	}
	var body tokenBody
	if err := c.ShouldBindJSON(&body); err == nil {
		return body.RefreshToken
	}
	return ""
}

func (h *AuthHandlers) setTokenCookies(c *gin.Context, result *domain.AuthResult) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(middleware.AccessTokenCookie, result.AccessToken, int(h.cookies.AccessTTL.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, result.RefreshToken, int(h.cookies.RefreshTTL.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandlers) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}
