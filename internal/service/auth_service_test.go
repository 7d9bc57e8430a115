package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mansoorceksport/learnify/internal/config"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens() *TokenService {
	return NewTokenService(config.JWTConfig{Secret: "test-secret", Expiry: time.Hour, CookieName: "token"})
}

func avatarUpload() *Upload {
	return &Upload{Data: []byte("png-bytes"), Filename: "me.PNG", ContentType: "image/png"}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo()
	files := newMemFiles()
	tokens := newTestTokens()
	svc := NewAuthService(users, files, tokens, &recordingMailer{}, "https://learnify.test")

	res, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: " Ada@Learnify.test ", Password: "secret123", Avatar: avatarUpload()})
	require.NoError(t, err)
	assert.Equal(t, "ada@learnify.test", res.User.Email)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.NotEqual(t, "secret123", res.User.PasswordHash)
	assert.True(t, strings.HasPrefix(res.User.Avatar.PublicID, "avatars/"))
	assert.True(t, strings.HasSuffix(res.User.Avatar.PublicID, ".png"))
	assert.True(t, files.has(res.User.Avatar.PublicID))

	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@learnify.test", Password: "secret123", Avatar: avatarUpload()})
	assert.ErrorIs(t, err, domain.ErrConflict)

	login, err := svc.Login(ctx, "ADA@learnify.test", "secret123")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ada@learnify.test", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@learnify.test", "secret123")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := NewAuthService(newMemUserRepo(), newMemFiles(), newTestTokens(), &recordingMailer{}, "")

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "missing name", req: RegisterRequest{Email: "a@b.c", Password: "secret123", Avatar: avatarUpload()}},
		{name: "missing avatar", req: RegisterRequest{Name: "A", Email: "a@b.c", Password: "secret123"}},
		{name: "short password", req: RegisterRequest{Name: "A", Email: "a@b.c", Password: "123", Avatar: avatarUpload()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo()
	svc := NewAuthService(users, newMemFiles(), newTestTokens(), &recordingMailer{}, "")

	res, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@b.c", Password: "oldpass1", Avatar: avatarUpload()})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, res.User.ID, "nope", "newpass1"), domain.ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, res.User.ID, "oldpass1", "newpass1"))

	_, err = svc.Login(ctx, "a@b.c", "newpass1")
	assert.NoError(t, err)
}

func TestAuthService_ForgetAndResetPassword(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo()
	mailer := &recordingMailer{}
	svc := NewAuthService(users, newMemFiles(), newTestTokens(), mailer, "https://learnify.test/")
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@b.c", Password: "oldpass1", Avatar: avatarUpload()})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ForgetPassword(ctx, "missing@b.c"), domain.ErrNotFound)
	require.NoError(t, svc.ForgetPassword(ctx, "a@b.c"))

	mail := mailer.last()
	assert.Equal(t, "a@b.c", mail.to)
	const prefix = "https://learnify.test/resetpassword/"
	idx := strings.Index(mail.body, prefix)
	require.GreaterOrEqual(t, idx, 0)
	token := strings.Fields(mail.body[idx+len(prefix):])[0]
	token = strings.TrimSuffix(token, ".")

	stored, err := users.GetByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, hashToken(token), stored.ResetPasswordToken)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "bogus", "newpass1"), domain.ErrValidation)

	// expired after the TTL
	now = now.Add(ResetTokenTTL + time.Second)
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "newpass1"), domain.ErrValidation)

	now = now.Add(-2 * time.Minute)
	require.NoError(t, svc.ResetPassword(ctx, token, "newpass1"))

	_, err = svc.Login(ctx, "a@b.c", "newpass1")
	assert.NoError(t, err)

	stored, err = users.GetByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Empty(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpire)
}

func TestTokenService_RejectsForeignToken(t *testing.T) {
	issuer := NewTokenService(config.JWTConfig{Secret: "a", Expiry: time.Hour})
	verifier := NewTokenService(config.JWTConfig{Secret: "b", Expiry: time.Hour})

	token, err := issuer.Generate(&domain.User{ID: "u1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	expired := NewTokenService(config.JWTConfig{Secret: "a", Expiry: -time.Minute})
	token, err = expired.Generate(&domain.User{ID: "u1"})
	require.NoError(t, err)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
