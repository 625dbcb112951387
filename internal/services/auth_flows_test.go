package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/mocks"
)

func TestFlow_RegisterAndVerify(t *testing.T) {
	s := newStack(t, AuthConfig{})
	ctx := context.Background()

	account, err := s.svc.Register(ctx, domain.RegisterInput{
		Name: "Alice", Username: "alice", Email: "Alice@X.com", Password: "pw1", Role: "RESEARCHER",
	})
	require.NoError(t, err)
	assert.False(t, account.IsVerified)

	_, err = s.svc.Register(ctx, domain.RegisterInput{
		Name: "Alice", Username: "alice2", Email: "ALICE@x.com", Password: "pw1",
	})
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	code := s.lastCode(t, mocks.KindVerification, "alice@x.com")

	verified, err := s.svc.VerifyOTP(ctx, "alice@x.com", code)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.True(t, verified.EmailVerified)

	stored, err := s.accounts.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.Verification, "consumed challenge must be cleared")

	// Replaying the same code is an idempotent success
	again, err := s.svc.VerifyOTP(ctx, "alice@x.com", code)
	require.NoError(t, err)
	assert.True(t, again.IsVerified)
}

func TestFlow_VerifyRejectsExpiredCode(t *testing.T) {
	s := newStack(t, AuthConfig{})
	ctx := context.Background()

	_, err := s.svc.Register(ctx, domain.RegisterInput{Name: "Bob", Username: "bob", Email: "bob@x.com", Password: "pw"})
	require.NoError(t, err)
	code := s.lastCode(t, mocks.KindVerification, "bob@x.com")

	s.clock.Advance(16 * time.Minute)

	_, err = s.svc.VerifyOTP(ctx, "bob@x.com", code)
	assert.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestFlow_ResendThrottle(t *testing.T) {
	s := newStack(t, AuthConfig{})
	ctx := context.Background()

	_, err := s.svc.Register(ctx, domain.RegisterInput{Name: "Carol", Username: "carol", Email: "carol@x.com", Password: "pw"})
	require.NoError(t, err)
	first := s.lastCode(t, mocks.KindVerification, "carol@x.com")

	s.clock.Advance(20 * time.Second)
	err = s.svc.ResendOTP(ctx, "carol@x.com")
	var throttled *domain.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Equal(t, 40, throttled.RetryAfterSeconds())

	s.clock.Advance(41 * time.Second)
	require.NoError(t, s.svc.ResendOTP(ctx, "carol@x.com"))
	second := s.lastCode(t, mocks.KindVerification, "carol@x.com")

	if first != second {
		_, err = s.svc.VerifyOTP(ctx, "carol@x.com", first)
		assert.ErrorIs(t, err, domain.ErrOTPInvalid, "the replaced code must stop working")
	}

	_, err = s.svc.VerifyOTP(ctx, "carol@x.com", second)
	require.NoError(t, err)

	assert.ErrorIs(t, s.svc.ResendOTP(ctx, "carol@x.com"), domain.ErrAlreadyVerified)
}

func TestFlow_LoginFailuresShareOneMessage(t *testing.T) {
	s := newStack(t, AuthConfig{})
	ctx := context.Background()

	s.registerVerified(t, "dave", "right-pw")
	_, err := s.svc.Register(ctx, domain.RegisterInput{Name: "Erin", Username: "erin", Email: "erin@x.com", Password: "pw"})
	require.NoError(t, err)

	wrongPassword := func() error { _, err := s.svc.Login(ctx, "dave@x.com", "wrong-pw"); return err }()
	unknown := func() error { _, err := s.svc.Login(ctx, "nobody", "right-pw"); return err }()
	unverified := func() error { _, err := s.svc.Login(ctx, "erin", "pw"); return err }()

	for _, err := range []error{wrongPassword, unknown, unverified} {
		require.Error(t, err)
		assert.Equal(t, "invalid credentials", err.Error())
	}
	assert.ErrorIs(t, unverified, domain.ErrAccountNotVerified)

	result, err := s.svc.Login(ctx, "DAVE", "right-pw")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEqual(t, result.AccessToken, result.RefreshToken)
	assert.Equal(t, int64(900), result.ExpiresIn)

	claims, err := s.tokens.VerifyAccess(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, claims.AccountID)

	_, err = s.tokens.VerifyAccess(result.RefreshToken)
	assert.Error(t, err, "refresh tokens must not pass as access tokens")
}

func TestFlow_RefreshRotation(t *testing.T) {
	s := newStack(t, AuthConfig{})
	ctx := context.Background()

	s.registerVerified(t, "frank", "pw")
	login, err := s.svc.Login(ctx, "frank", "pw")
	require.NoError(t, err)
	r1 := login.RefreshToken

	rotated, err := s.svc.Refresh(ctx, r1)
	require.NoError(t, err)
	r2 := rotated.RefreshToken
	assert.NotEqual(t, r1, r2)

	_, err = s.svc.Refresh(ctx, r1)
	assert.ErrorIs(t, err, domain.ErrTokenMismatch)
	assert.Contains(t, s.audit.EventTypes(), domain.TokenReuseEvent)

	again, err := s.svc.Refresh(ctx, r2)
	require.NoError(t, err)
	r3 := again.RefreshToken

	require.NoError(t, s.svc.Logout(ctx, r3))
	_, err = s.svc.Refresh(ctx, r3)
	assert.ErrorIs(t, err, domain.ErrTokenMismatch)

	// Logging out twice is harmless
	assert.NoError(t, s.svc.Logout(ctx, r3))
}

func TestFlow_ConcurrentRefreshHasOneWinner(t *testing.T) {
	s := newStack(t, AuthConfig{})
	ctx := context.Background()

	s.registerVerified(t, "grace", "pw")
	login, err := s.svc.Login(ctx, "grace", "pw")
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.svc.Refresh(ctx, login.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, result.RefreshToken)
			case errors.Is(err, domain.ErrTokenMismatch):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, callers-1, conflicts)

	stored, err := s.accounts.FindByRefreshToken(ctx, winners[0])
	require.NoError(t, err)
	assert.Equal(t, login.Account.ID, stored.ID)
}

func TestFlow_PasswordReset(t *testing.T) {
	tests := []struct {
		name          string
		revoke        bool
		refreshResult error
	}{
		{name: "session survives by default"},
		{name: "session revoked when configured", revoke: true, refreshResult: domain.ErrTokenMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStack(t, AuthConfig{RevokeSessionOnReset: tt.revoke})
			ctx := context.Background()

			email := s.registerVerified(t, "heidi", "old-pw")
			login, err := s.svc.Login(ctx, email, "old-pw")
			require.NoError(t, err)

			assert.ErrorIs(t, s.svc.ForgotPassword(ctx, "nobody@x.com"), domain.ErrAccountNotFound)
			assert.ErrorIs(t, s.svc.ResetPassword(ctx, email, "123456", "new-pw"), domain.ErrInvalidRequest,
				"reset without a requested code")

			require.NoError(t, s.svc.ForgotPassword(ctx, email))
			code := s.lastCode(t, mocks.KindReset, email)

			wrong := "000000"
			if code == wrong {
				wrong = "111111"
			}
			assert.ErrorIs(t, s.svc.ResetPassword(ctx, email, wrong, "new-pw"), domain.ErrOTPInvalid)

			require.NoError(t, s.svc.ResetPassword(ctx, email, code, "new-pw"))
			assert.ErrorIs(t, s.svc.ResetPassword(ctx, email, code, "other-pw"), domain.ErrInvalidRequest,
				"a reset code works once")

			_, err = s.svc.Login(ctx, email, "old-pw")
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
			_, err = s.svc.Login(ctx, email, "new-pw")
			require.NoError(t, err)

			// The second login replaced the first session either way
			_, err = s.svc.Refresh(ctx, login.RefreshToken)
			assert.ErrorIs(t, err, domain.ErrTokenMismatch)
		})

		t.Run(tt.name+" without relogin", func(t *testing.T) {
			s := newStack(t, AuthConfig{RevokeSessionOnReset: tt.revoke})
			ctx := context.Background()

			email := s.registerVerified(t, "ivan", "old-pw")
			login, err := s.svc.Login(ctx, email, "old-pw")
			require.NoError(t, err)

			require.NoError(t, s.svc.ForgotPassword(ctx, email))
			require.NoError(t, s.svc.ResetPassword(ctx, email, s.lastCode(t, mocks.KindReset, email), "new-pw"))

			_, err = s.svc.Refresh(ctx, login.RefreshToken)
			if tt.refreshResult == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.refreshResult)
			}
		})
	}
}

func TestFlow_ProvisionAdmin(t *testing.T) {
	s := newStack(t, AuthConfig{})
	ctx := context.Background()

	root := &domain.Account{
		Name: "Root", Username: "root", Email: "root@x.com", PasswordHash: "unused",
		Role: domain.RoleAdmin, Status: domain.StatusActive, IsVerified: true, EmailVerified: true,
	}
	require.NoError(t, s.accounts.Create(ctx, root))
	s.registerVerified(t, "judy", "pw")
	judy, err := s.accounts.FindByUsername(ctx, "judy")
	require.NoError(t, err)

	input := domain.ProvisionInput{Name: "Ops", Username: "ops", Email: "ops@x.com", Password: "ops-pw"}

	_, err = s.svc.ProvisionAdmin(ctx, domain.AuthContext{AccountID: judy.ID, Role: judy.Role}, input)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	created, err := s.svc.ProvisionAdmin(ctx, domain.AuthContext{AccountID: root.ID, Role: domain.RoleAdmin}, input)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, created.Role)
	assert.False(t, created.PhoneVerified)

	_, err = s.svc.ProvisionAdmin(ctx, domain.AuthContext{AccountID: root.ID, Role: domain.RoleAdmin}, input)
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	result, err := s.svc.Login(ctx, "ops", "ops-pw")
	require.NoError(t, err, "provisioned admins log in without verifying")
	assert.Equal(t, domain.RoleAdmin, result.Account.Role)

	me, err := s.svc.Me(ctx, domain.AuthContext{AccountID: created.ID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "ops@x.com", me.Email)
	assert.NotNil(t, me.LastLoginAt)

	s.notifier.Wait()
	_, welcomed := s.gateway.LastCode(mocks.KindAdminWelcome, "ops@x.com")
	assert.True(t, welcomed)
}

func TestFlow_DeliveryFailureIsNotFatal(t *testing.T) {
	s := newStack(t, AuthConfig{})
	s.gateway.SendVerificationCodeFunc = func(ctx context.Context, email, name, code string) error {
		return errors.New("smtp unavailable")
	}
	ctx := context.Background()

	_, err := s.svc.Register(ctx, domain.RegisterInput{Name: "Kim", Username: "kim", Email: "kim@x.com", Password: "pw"})
	require.NoError(t, err)

	// The code was still generated and attempted, so it can be verified
	code := s.lastCode(t, mocks.KindVerification, "kim@x.com")
	_, err = s.svc.VerifyOTP(ctx, "kim@x.com", code)
	require.NoError(t, err)
	assert.Contains(t, s.audit.EventTypes(), domain.NotificationFailureEvent)
}
