package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/middleware"
	"github.com/noah-isme/meal-checkin-api/internal/models"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
)

type authServiceMock struct {
	adminID string
	err     error
}

func (m *authServiceMock) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.LoginResponse{AccessToken: "token", Admin: dto.AdminInfo{ID: "a1", Username: req.Username}}, nil
}

func (m *authServiceMock) Init(ctx context.Context, req dto.InitAdminRequest) (*dto.AdminInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.AdminInfo{ID: "a1", Username: req.Username}, nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, adminID string, req dto.ChangePasswordRequest) error {
	m.adminID = adminID
	return m.err
}

func (m *authServiceMock) ChangeUsername(ctx context.Context, adminID string, req dto.ChangeUsernameRequest) (*dto.AdminInfo, error) {
	m.adminID = adminID
	if m.err != nil {
		return nil, m.err
	}
	return &dto.AdminInfo{ID: adminID, Username: req.NewUsername}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{})
	c, w := newGinContext(http.MethodPost, "/auth/login", mustJSON(t, dto.LoginRequest{Username: "office", Password: "secret1"}))
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token", decodeEnvelope(t, w).Data.(map[string]interface{})["access_token"])
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{err: appErrors.ErrInvalidCredentials})
	c, w := newGinContext(http.MethodPost, "/auth/login", mustJSON(t, dto.LoginRequest{Username: "office", Password: "nope"}))
	handler.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, w).Error.Code)
}

func TestAuthHandlerInitConflict(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "admin already initialised")})
	c, w := newGinContext(http.MethodPost, "/auth/init", mustJSON(t, dto.InitAdminRequest{Username: "office", Password: "secret1"}))
	handler.Init(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandlerChangePasswordUsesSessionAdmin(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, _ := newGinContext(http.MethodPut, "/auth/password", mustJSON(t, dto.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))
	c.Set(middleware.ContextAdminKey, &models.JWTClaims{AdminID: "a1", Username: "office"})
	handler.ChangePassword(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "a1", svc.adminID)
}

func TestAuthHandlerChangeUsernameRequiresSession(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{})
	c, w := newGinContext(http.MethodPut, "/auth/username", mustJSON(t, dto.ChangeUsernameRequest{CurrentPassword: "secret1", NewUsername: "kitchen"}))
	handler.ChangeUsername(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPut, "/auth/username", mustJSON(t, dto.ChangeUsernameRequest{CurrentPassword: "secret1", NewUsername: "kitchen"}))
	c.Set(middleware.ContextAdminKey, &models.JWTClaims{AdminID: "a1", Username: "office"})
	handler.ChangeUsername(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kitchen", decodeEnvelope(t, w).Data.(map[string]interface{})["username"])
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{})
	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextAdminKey, &models.JWTClaims{AdminID: "a1", Username: "office"})
	handler.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "office", decodeEnvelope(t, w).Data.(map[string]interface{})["username"])
}
