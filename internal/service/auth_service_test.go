package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/models"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
)

func newAuthService(repo *memAdmins) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "test"})
}

func TestAuthServiceInitLoginAndValidate(t *testing.T) {
	repo := &memAdmins{}
	svc := newAuthService(repo)
	ctx := context.Background()

	info, err := svc.Init(ctx, dto.InitAdminRequest{Username: "office", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "office", info.Username)

	_, err = svc.Init(ctx, dto.InitAdminRequest{Username: "other", Password: "secret2"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "office", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	_, err = svc.Login(ctx, dto.LoginRequest{Username: "nobody", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	resp, err := svc.Login(ctx, dto.LoginRequest{Username: "office", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, info.ID, resp.Admin.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, info.ID, claims.AdminID)
	assert.Equal(t, "office", claims.Username)
}

func TestAuthServiceValidateTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	svc := newAuthService(&memAdmins{})

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{AdminID: "a1"})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		AdminID:          "a1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	signed, err = expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	_, err = svc.ValidateToken("garbage")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestAuthServiceChangeCredentials(t *testing.T) {
	repo := &memAdmins{}
	svc := newAuthService(repo)
	ctx := context.Background()

	office, err := svc.Init(ctx, dto.InitAdminRequest{Username: "office", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &models.Admin{Username: "taken", PasswordHash: "x"}))

	err = svc.ChangePassword(ctx, office.ID, dto.ChangePasswordRequest{CurrentPassword: "bad", NewPassword: "newpass"})
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	require.NoError(t, svc.ChangePassword(ctx, office.ID, dto.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "newpass"}))

	_, err = svc.ChangeUsername(ctx, office.ID, dto.ChangeUsernameRequest{CurrentPassword: "newpass", NewUsername: "taken"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	renamed, err := svc.ChangeUsername(ctx, office.ID, dto.ChangeUsernameRequest{CurrentPassword: "newpass", NewUsername: "kitchen"})
	require.NoError(t, err)
	assert.Equal(t, "kitchen", renamed.Username)

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "kitchen", Password: "newpass"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, "missing", dto.ChangePasswordRequest{CurrentPassword: "x", NewPassword: "newpass"})
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestAuthServiceEnsureDefaultAdminAndReset(t *testing.T) {
	repo := &memAdmins{}
	svc := newAuthService(repo)
	ctx := context.Background()

	created, err := svc.EnsureDefaultAdmin(ctx, "admin", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.EnsureDefaultAdmin(ctx, "admin", "bootstrap")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureDefaultAdmin(ctx, "admin", "bootstrap")
	require.NoError(t, err)
	assert.False(t, created)

	info, err := svc.ResetCredentials(ctx, dto.InitAdminRequest{Username: "office", Password: "fresh1"})
	require.NoError(t, err)
	total, _ := repo.Count(ctx)
	assert.Equal(t, 1, total)

	resp, err := svc.Login(ctx, dto.LoginRequest{Username: "office", Password: "fresh1"})
	require.NoError(t, err)
	assert.Equal(t, info.ID, resp.Admin.ID)
	_, err = svc.Login(ctx, dto.LoginRequest{Username: "admin", Password: "bootstrap"})
	assert.Error(t, err)
}
