package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/researchguru/authsvc/domain"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount represents the database model for Account (with GORM tags)
type DBAccount struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"size:255;not null"`
	Username      string `gorm:"uniqueIndex;size:64;not null"`
	Email         string `gorm:"uniqueIndex;size:255;not null"`
	Phone         string `gorm:"size:32"`
	PasswordHash  string `gorm:"column:password;not null"`
	Role          string `gorm:"index;size:32"`
	Status        string `gorm:"index;size:32"`
	IsVerified    bool
	EmailVerified bool
	PhoneVerified bool

	OTPHash       *string    `gorm:"column:otp_hash"`
	OTPExpiresAt  *time.Time `gorm:"column:otp_expires_at"`
	LastOTPSentAt *time.Time `gorm:"column:last_otp_sent_at"`

	PasswordResetHash      *string    `gorm:"column:password_reset_hash"`
	PasswordResetExpiresAt *time.Time `gorm:"column:password_reset_expires_at"`

	RefreshToken *string `gorm:"column:refresh_token;type:text;index"`

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "accounts"
}

// NewAccountRepository creates a new account repository. The DB must be
// opened with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// Create implements domain.AccountRepository
func (r *AccountRepositoryImpl) Create(ctx context.Context, account *domain.Account) error {
	dbAccount := r.domainToDB(account)
	if err := r.db.WithContext(ctx).Create(dbAccount).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAccountExists
		}
		return err
	}
	account.ID = dbAccount.ID
	account.CreatedAt = dbAccount.CreatedAt
	account.UpdatedAt = dbAccount.UpdatedAt
	return nil
}

// FindByID implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "email = ?", domain.NormalizeEmail(email))
}

// FindByUsername implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, "username = ?", domain.NormalizeUsername(username))
}

// FindByRefreshToken implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByRefreshToken(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, "refresh_token = ?", token)
}

// ExistsByEmailOrUsername implements domain.AccountRepository
func (r *AccountRepositoryImpl) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("email = ? OR username = ?", domain.NormalizeEmail(email), domain.NormalizeUsername(username)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReplaceVerification implements domain.AccountRepository
func (r *AccountRepositoryImpl) ReplaceVerification(ctx context.Context, id uint, expectedHash string, next domain.Challenge) error {
	q := r.db.WithContext(ctx).Model(&DBAccount{}).Where("id = ? AND is_verified = ?", id, false)
	q = whereHash(q, "otp_hash", expectedHash)
	res := q.Updates(map[string]interface{}{
		"otp_hash":         next.Hash,
		"otp_expires_at":   next.ExpiresAt,
		"last_otp_sent_at": next.SentAt,
	})
	return conditional(res, domain.ErrChallengeChanged)
}

// ConsumeVerification implements domain.AccountRepository
func (r *AccountRepositoryImpl) ConsumeVerification(ctx context.Context, id uint, expectedHash string) error {
	if expectedHash == "" {
		return domain.ErrChallengeChanged
	}
	res := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("id = ? AND otp_hash = ?", id, expectedHash).
		Updates(map[string]interface{}{
			"is_verified":      true,
			"email_verified":   true,
			"otp_hash":         nil,
			"otp_expires_at":   nil,
			"last_otp_sent_at": nil,
		})
	return conditional(res, domain.ErrChallengeChanged)
}

// SaveReset implements domain.AccountRepository
func (r *AccountRepositoryImpl) SaveReset(ctx context.Context, id uint, challenge domain.Challenge) error {
	res := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_reset_hash":       challenge.Hash,
			"password_reset_expires_at": challenge.ExpiresAt,
		})
	return conditional(res, domain.ErrAccountNotFound)
}

// ConsumeReset implements domain.AccountRepository
func (r *AccountRepositoryImpl) ConsumeReset(ctx context.Context, id uint, expectedHash, newPasswordHash string, revokeSession bool) error {
	if expectedHash == "" {
		return domain.ErrChallengeChanged
	}
	updates := map[string]interface{}{
		"password":                  newPasswordHash,
		"password_reset_hash":       nil,
		"password_reset_expires_at": nil,
	}
	if revokeSession {
		updates["refresh_token"] = nil
	}
	res := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("id = ? AND password_reset_hash = ?", id, expectedHash).
		Updates(updates)
	return conditional(res, domain.ErrChallengeChanged)
}

// EstablishSession implements domain.AccountRepository
func (r *AccountRepositoryImpl) EstablishSession(ctx context.Context, id uint, refreshToken string, loginAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"refresh_token": refreshToken,
			"last_login_at": loginAt,
		})
	return conditional(res, domain.ErrAccountNotFound)
}

// RotateSession implements domain.AccountRepository
func (r *AccountRepositoryImpl) RotateSession(ctx context.Context, id uint, expected, next string) error {
	if expected == "" {
		return domain.ErrTokenMismatch
	}
	res := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("id = ? AND refresh_token = ?", id, expected).
		Update("refresh_token", next)
	return conditional(res, domain.ErrTokenMismatch)
}

// RevokeSession implements domain.AccountRepository. A token that was already
// rotated out or cleared leaves the row untouched.
func (r *AccountRepositoryImpl) RevokeSession(ctx context.Context, id uint, expected string) error {
	if expected == "" {
		return nil
	}
	return r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("id = ? AND refresh_token = ?", id, expected).
		Update("refresh_token", nil).Error
}

func (r *AccountRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	var dbAccount DBAccount
	err := r.db.WithContext(ctx).Where(query, arg).First(&dbAccount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbAccount), nil
}

func whereHash(q *gorm.DB, column, expected string) *gorm.DB {
	if expected == "" {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", expected)
}

// conditional turns a write that matched no row into the given error
func conditional(res *gorm.DB, miss error) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return miss
	}
	return nil
}

// domainToDB converts domain account to database account
func (r *AccountRepositoryImpl) domainToDB(a *domain.Account) *DBAccount {
	dbAccount := &DBAccount{
		ID:            a.ID,
		Name:          a.Name,
		Username:      domain.NormalizeUsername(a.Username),
		Email:         domain.NormalizeEmail(a.Email),
		Phone:         a.Phone,
		PasswordHash:  a.PasswordHash,
		Role:          string(a.Role),
		Status:        string(a.Status),
		IsVerified:    a.IsVerified,
		EmailVerified: a.EmailVerified,
		PhoneVerified: a.PhoneVerified,
		LastLoginAt:   a.LastLoginAt,
	}
	if a.Verification.Outstanding() {
		dbAccount.OTPHash = ptr(a.Verification.Hash)
		dbAccount.OTPExpiresAt = ptr(a.Verification.ExpiresAt)
		dbAccount.LastOTPSentAt = ptr(a.Verification.SentAt)
	}
	if a.Reset.Outstanding() {
		dbAccount.PasswordResetHash = ptr(a.Reset.Hash)
		dbAccount.PasswordResetExpiresAt = ptr(a.Reset.ExpiresAt)
	}
	if a.Session.Active() {
		dbAccount.RefreshToken = ptr(a.Session.RefreshToken)
	}
	return dbAccount
}

// dbToDomain converts database account to domain account
func (r *AccountRepositoryImpl) dbToDomain(d *DBAccount) *domain.Account {
	a := &domain.Account{
		ID:            d.ID,
		Name:          d.Name,
		Username:      d.Username,
		Email:         d.Email,
		Phone:         d.Phone,
		PasswordHash:  d.PasswordHash,
		Role:          domain.Role(d.Role),
		Status:        domain.Status(d.Status),
		IsVerified:    d.IsVerified,
		EmailVerified: d.EmailVerified,
		PhoneVerified: d.PhoneVerified,
		LastLoginAt:   d.LastLoginAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.OTPHash != nil && *d.OTPHash != "" {
		a.Verification = &domain.Challenge{
			Purpose:   domain.PurposeVerify,
			Hash:      *d.OTPHash,
			ExpiresAt: deref(d.OTPExpiresAt),
			SentAt:    deref(d.LastOTPSentAt),
		}
	}
	if d.PasswordResetHash != nil && *d.PasswordResetHash != "" {
		a.Reset = &domain.Challenge{
			Purpose:   domain.PurposeReset,
			Hash:      *d.PasswordResetHash,
			ExpiresAt: deref(d.PasswordResetExpiresAt),
		}
	}
	if d.RefreshToken != nil {
		a.Session.RefreshToken = *d.RefreshToken
	}
	return a
}

func ptr[T any](v T) *T { return &v }

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
