package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchguru/authsvc/domain"
)

func newTestJWTService(t *testing.T, now func() time.Time) *JWTServiceImpl {
	t.Helper()

	svc, err := NewJWTService(JWTConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		Issuer:        "authsvc-test",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return svc.WithClock(now)
}

func TestNewJWTService_RejectsBadSecrets(t *testing.T) {
	tests := []struct {
		name string
		cfg  JWTConfig
	}{
		{name: "missing access secret", cfg: JWTConfig{RefreshSecret: "r"}},
		{name: "missing refresh secret", cfg: JWTConfig{AccessSecret: "a"}},
		{name: "shared secret", cfg: JWTConfig{AccessSecret: "same", RefreshSecret: "same"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJWTService(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return now })

	access, err := svc.IssueAccess(42, domain.RoleResearcher)
	require.NoError(t, err)
	refresh, err := svc.IssueRefresh(42, domain.RoleResearcher)
	require.NoError(t, err)

	claims, err := svc.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.AccountID)
	assert.Equal(t, domain.RoleResearcher, claims.Role)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.TokenID)

	claims, err = svc.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestJWTService_SecretsAreNotInterchangeable(t *testing.T) {
	now := time.Now()
	svc := newTestJWTService(t, func() time.Time { return now })

	access, err := svc.IssueAccess(1, domain.RoleStudent)
	require.NoError(t, err)
	refresh, err := svc.IssueRefresh(1, domain.RoleStudent)
	require.NoError(t, err)

	_, err = svc.VerifyRefresh(access)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	_, err = svc.VerifyAccess(refresh)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTService_Expiry(t *testing.T) {
	current := time.Now()
	svc := newTestJWTService(t, func() time.Time { return current })

	access, err := svc.IssueAccess(1, domain.RoleStudent)
	require.NoError(t, err)

	current = current.Add(16 * time.Minute)
	_, err = svc.VerifyAccess(access)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestJWTService_RejectsGarbageAndTampering(t *testing.T) {
	svc := newTestJWTService(t, time.Now)

	_, err := svc.VerifyAccess("")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = svc.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	foreign, err := NewJWTService(JWTConfig{
		AccessSecret:  "some-other-access-secret",
		RefreshSecret: "some-other-refresh-secret",
		Issuer:        "authsvc-test",
	})
	require.NoError(t, err)
	token, err := foreign.IssueAccess(1, domain.RoleStudent)
	require.NoError(t, err)
	_, err = svc.VerifyAccess(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTService_SameSecondPairsDiffer(t *testing.T) {
	now := time.Now()
	svc := newTestJWTService(t, func() time.Time { return now })

	first, err := svc.IssueRefresh(9, domain.RoleStudent)
	require.NoError(t, err)
	second, err := svc.IssueRefresh(9, domain.RoleStudent)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
