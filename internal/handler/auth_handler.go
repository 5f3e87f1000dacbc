package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Init(ctx context.Context, req dto.InitAdminRequest) (*dto.AdminInfo, error)
	ChangePassword(ctx context.Context, adminID string, req dto.ChangePasswordRequest) error
	ChangeUsername(ctx context.Context, adminID string, req dto.ChangeUsernameRequest) (*dto.AdminInfo, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate admin
// @Description Authenticate the dashboard admin by username and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Init godoc
// @Summary Create the first admin
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.InitAdminRequest true "Admin credentials"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/init [post]
func (h *AuthHandler) Init(c *gin.Context) {
	var req dto.InitAdminRequest
	if !bindJSON(c, &req, "invalid admin payload") {
		return
	}
	admin, err := h.service.Init(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admin)
}

// ChangePassword godoc
// @Summary Change the signed-in admin's password
// @Tags Authentication
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.ChangePasswordRequest true "Password payload"
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := adminFromContext(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req, "invalid password payload") {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), claims.AdminID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangeUsername godoc
// @Summary Rename the signed-in admin
// @Tags Authentication
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.ChangeUsernameRequest true "Username payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/username [put]
func (h *AuthHandler) ChangeUsername(c *gin.Context) {
	claims, ok := adminFromContext(c)
	if !ok {
		return
	}
	var req dto.ChangeUsernameRequest
	if !bindJSON(c, &req, "invalid username payload") {
		return
	}
	admin, err := h.service.ChangeUsername(c.Request.Context(), claims.AdminID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admin, nil)
}

// Me returns the claims of the current session.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := adminFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, dto.AdminInfo{ID: claims.AdminID, Username: claims.Username}, nil)
}
