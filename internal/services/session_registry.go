package services

import (
	"context"
	"errors"
	"time"

	"github.com/researchguru/authsvc/domain"
)

// SessionRegistryImpl implements domain.SessionRegistry on top of the
// refresh token stored on each account.
type SessionRegistryImpl struct {
	accounts domain.AccountRepository
	tokens   domain.TokenService
}

// NewSessionRegistry creates a new session registry
func NewSessionRegistry(accounts domain.AccountRepository, tokens domain.TokenService) domain.SessionRegistry {
	return &SessionRegistryImpl{accounts: accounts, tokens: tokens}
}

// Establish implements domain.SessionRegistry. It is the only unconditional
// write of the stored refresh token.
func (r *SessionRegistryImpl) Establish(ctx context.Context, accountID uint, refreshToken string, loginAt time.Time) error {
	return r.accounts.EstablishSession(ctx, accountID, refreshToken, loginAt)
}

// Authorize implements domain.SessionRegistry
func (r *SessionRegistryImpl) Authorize(ctx context.Context, presented string) (*domain.Account, *domain.TokenClaims, error) {
	claims, err := r.tokens.VerifyRefresh(presented)
	if err != nil {
		return nil, nil, err
	}

	account, err := r.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, nil, domain.ErrTokenInvalid
		}
		return nil, nil, err
	}

	if !account.Session.Active() || account.Session.RefreshToken != presented {
		return nil, nil, domain.ErrTokenMismatch
	}
	return account, claims, nil
}

// Rotate implements domain.SessionRegistry
func (r *SessionRegistryImpl) Rotate(ctx context.Context, accountID uint, presented, next string) error {
	return r.accounts.RotateSession(ctx, accountID, presented, next)
}

// Revoke implements domain.SessionRegistry
func (r *SessionRegistryImpl) Revoke(ctx context.Context, accountID uint, presented string) error {
	return r.accounts.RevokeSession(ctx, accountID, presented)
}
