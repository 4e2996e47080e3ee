package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/utils"
)

func newAuthFixture() (*AuthService, *fakeUsers) {
	users := newFakeUsers()
	tokens := utils.NewTokenIssuer("test-secret", "housing", "housing-clients", 15*time.Minute, 24*time.Hour)
	return NewAuthService(users, tokens, testLogger()), users
}

func TestAuthRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthFixture()

	sess, err := svc.Register(ctx, RegisterParams{Name: " Ada ", Email: "ada@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, sess.User.Role)
	assert.Equal(t, "Ada", sess.User.Name)
	assert.NotEmpty(t, sess.AccessToken.Token)
	assert.Len(t, sess.RefreshToken.Raw, 96)

	stored, err := users.GetByID(ctx, sess.User.ID)
	require.NoError(t, err)
	require.Len(t, stored.RefreshTokens, 1)
	assert.Equal(t, utils.HashRefreshRaw(sess.RefreshToken.Raw), stored.RefreshTokens[0].TokenHash)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash)

	_, err = svc.Register(ctx, RegisterParams{Name: "Ada", Email: "ada@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(ctx, LoginParams{Email: "ada@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginParams{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginParams{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.Register(context.Background(), RegisterParams{Name: "X", Email: "x@example.com", Password: "password1", Role: "admin"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)
}

func TestAuthRefreshRotatesAndRejectsReplay(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthFixture()

	sess, err := svc.Register(ctx, RegisterParams{Name: "Bo", Email: "bo@example.com", Password: "password1", Role: model.RoleOwner})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, sess.RefreshToken.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken.Raw, next.RefreshToken.Raw)
	assert.Equal(t, model.RoleOwner, next.User.Role)

	_, err = svc.Refresh(ctx, sess.RefreshToken.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	stored, err := users.GetByID(ctx, sess.User.ID)
	require.NoError(t, err)
	require.Len(t, stored.RefreshTokens, 1)
	assert.Equal(t, utils.HashRefreshRaw(next.RefreshToken.Raw), stored.RefreshTokens[0].TokenHash)

	_, err = svc.Refresh(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthRefreshExpiredTokenIsDropped(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthFixture()

	sess, err := svc.Register(ctx, RegisterParams{Name: "Cy", Email: "cy@example.com", Password: "password1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = svc.Refresh(ctx, sess.RefreshToken.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	stored, err := users.GetByID(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshTokens)
}

func TestAuthKeepsNewestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthFixture()

	first, err := svc.Register(ctx, RegisterParams{Name: "Di", Email: "di@example.com", Password: "password1"})
	require.NoError(t, err)

	var last *Session
	for i := 0; i < model.MaxRefreshTokens; i++ {
		last, err = svc.Login(ctx, LoginParams{Email: "di@example.com", Password: "password1"})
		require.NoError(t, err)
	}

	stored, err := users.GetByID(ctx, first.User.ID)
	require.NoError(t, err)
	assert.Len(t, stored.RefreshTokens, model.MaxRefreshTokens)

	_, err = svc.Refresh(ctx, first.RefreshToken.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "oldest token is evicted")
	_, err = svc.Refresh(ctx, last.RefreshToken.Raw)
	assert.NoError(t, err)
}

func TestAuthLogout(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthFixture()

	a, err := svc.Register(ctx, RegisterParams{Name: "Ed", Email: "ed@example.com", Password: "password1"})
	require.NoError(t, err)
	b, err := svc.Login(ctx, LoginParams{Email: "ed@example.com", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, nil, a.RefreshToken.Raw))
	_, err = svc.Refresh(ctx, a.RefreshToken.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.ErrorIs(t, svc.Logout(ctx, nil, ""), ErrInvalidRefreshToken)

	id := a.User.ID
	require.NoError(t, svc.Logout(ctx, &id, ""))
	_, err = svc.Refresh(ctx, b.RefreshToken.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	stored, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshTokens)
}

func TestAuthResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthFixture()
	sender := &fakeSender{}
	otp := NewOTPService(&fakeOTPs{}, users, sender, testLogger())

	sess, err := svc.Register(ctx, RegisterParams{Name: "Fa", Email: "fa@example.com", Password: "old-password"})
	require.NoError(t, err)

	_, err = otp.Send(ctx, "fa@example.com", model.OTPPasswordReset)
	require.NoError(t, err)
	code := sender.last(t).code

	require.NoError(t, svc.ResetPassword(ctx, otp, "fa@example.com", code, "new-password"))

	_, err = svc.Login(ctx, LoginParams{Email: "fa@example.com", Password: "old-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginParams{Email: "fa@example.com", Password: "new-password"})
	assert.NoError(t, err)

	_, err = svc.Refresh(ctx, sess.RefreshToken.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "reset revokes sessions")

	assert.ErrorIs(t, svc.ResetPassword(ctx, otp, "fa@example.com", code, "again-password"), ErrOTPNotFound)
}
