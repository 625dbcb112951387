package domain

import (
	"strings"
	"time"
)

// Role is the authorization role carried by an account and its tokens
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleResearcher Role = "RESEARCHER"
	RoleStudent    Role = "STUDENT"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleResearcher, RoleStudent:
		return true
	}
	return false
}

// RoleSubject is the casbin policy subject for role. Seeded policies and the
// route gate both go through it.
func RoleSubject(role Role) string {
	return "role_" + string(role)
}

// SelfServiceRole restricts a requested role to the ones a user may pick
// for themselves. Anything else falls back to STUDENT.
func SelfServiceRole(requested string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(requested))) {
	case RoleResearcher:
		return RoleResearcher
	default:
		return RoleStudent
	}
}

// Status gates login independently of verification
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Purpose names what a one-time code is for
type Purpose string

const (
	PurposeVerify Purpose = "VERIFY"
	PurposeReset  Purpose = "RESET"
)

// Challenge is an outstanding one-time code. Only the hash is ever stored.
type Challenge struct {
	Purpose   Purpose
	Hash      string
	ExpiresAt time.Time
	SentAt    time.Time
}

// Outstanding reports whether the challenge can still be checked against a code
func (c *Challenge) Outstanding() bool {
	return c != nil && c.Hash != ""
}

// ActiveSession holds the single refresh credential currently valid for an account
type ActiveSession struct {
	RefreshToken string
}

// Active reports whether a refresh credential is stored
func (s ActiveSession) Active() bool {
	return s.RefreshToken != ""
}

// Account is the durable per-user record, including transient challenge and session state
type Account struct {
	ID            uint
	Name          string
	Username      string
	Email         string
	Phone         string
	PasswordHash  string
	Role          Role
	Status        Status
	IsVerified    bool
	EmailVerified bool
	PhoneVerified bool

	Verification *Challenge
	Reset        *Challenge
	Session      ActiveSession

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanLogin reports whether the account passes the verification and status gates
func (a *Account) CanLogin() bool {
	return a.IsVerified && a.Status == StatusActive
}

// Sanitize projects the account onto the shape returned to clients
func (a *Account) Sanitize() *PublicAccount {
	if a == nil {
		return nil
	}
	return &PublicAccount{
		ID:            a.ID,
		Name:          a.Name,
		Username:      a.Username,
		Email:         a.Email,
		Phone:         a.Phone,
		Role:          a.Role,
		Status:        a.Status,
		IsVerified:    a.IsVerified,
		EmailVerified: a.EmailVerified,
		PhoneVerified: a.PhoneVerified,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// PublicAccount never carries the password hash, challenge material or the refresh token
type PublicAccount struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Role          Role       `json:"role"`
	Status        Status     `json:"status"`
	IsVerified    bool       `json:"isVerified"`
	EmailVerified bool       `json:"emailVerified"`
	PhoneVerified bool       `json:"phoneVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// AuthContext is the verified caller identity derived from an access token
type AuthContext struct {
	AccountID uint
	Role      Role
}

// RegisterInput carries the self-service registration fields
type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Phone    string
	Role     string
}

// ProvisionInput carries the fields for an administrator-created admin account
type ProvisionInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Phone    string
}

// AuthResult represents authentication outcome
type AuthResult struct {
	Account      *Account
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenClaims represents the decoded contents of an access or refresh token
type TokenClaims struct {
	AccountID uint
	Role      Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NormalizeEmail folds an email for lookup and storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername folds a username for lookup and storage
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
