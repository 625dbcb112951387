package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/researchguru/authsvc/domain"
)

// JWTConfig holds the signing material and lifetimes for both credentials
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type accountClaims struct {
	AccountID uint   `json:"id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTService creates a new JWT service. Access and refresh tokens must be
// signed with different secrets.
func NewJWTService(cfg JWTConfig) (*JWTServiceImpl, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("jwt: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &JWTServiceImpl{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source, used by tests
func (j *JWTServiceImpl) WithClock(now func() time.Time) *JWTServiceImpl {
	if now != nil {
		j.now = now
	}
	return j
}

// IssueAccess implements domain.TokenService
func (j *JWTServiceImpl) IssueAccess(accountID uint, role domain.Role) (string, error) {
	return j.sign(accountID, role, j.accessKey, j.accessTTL)
}

// IssueRefresh implements domain.TokenService
func (j *JWTServiceImpl) IssueRefresh(accountID uint, role domain.Role) (string, error) {
	return j.sign(accountID, role, j.refreshKey, j.refreshTTL)
}

// VerifyAccess implements domain.TokenService
func (j *JWTServiceImpl) VerifyAccess(token string) (*domain.TokenClaims, error) {
	return j.verify(token, j.accessKey)
}

// VerifyRefresh implements domain.TokenService
func (j *JWTServiceImpl) VerifyRefresh(token string) (*domain.TokenClaims, error) {
	return j.verify(token, j.refreshKey)
}

// AccessTTL implements domain.TokenService
func (j *JWTServiceImpl) AccessTTL() time.Duration { return j.accessTTL }

// RefreshTTL implements domain.TokenService
func (j *JWTServiceImpl) RefreshTTL() time.Duration { return j.refreshTTL }

func (j *JWTServiceImpl) sign(accountID uint, role domain.Role, key []byte, ttl time.Duration) (string, error) {
	now := j.now()
	claims := accountClaims{
		AccountID: accountID,
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// Unique ID keeps two tokens minted in the same second distinct
			ID: uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (j *JWTServiceImpl) verify(tokenString string, key []byte) (*domain.TokenClaims, error) {
	if tokenString == "" {
		return nil, domain.ErrTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	var claims accountClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if !token.Valid || claims.AccountID == 0 {
		return nil, domain.ErrTokenInvalid
	}

	result := &domain.TokenClaims{
		AccountID: claims.AccountID,
		Role:      domain.Role(claims.Role),
		TokenID:   claims.ID,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

var _ domain.TokenService = (*JWTServiceImpl)(nil)
