package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/meal-checkin-api/pkg/response"
)

type maintenanceService interface {
	Reset(ctx context.Context) error
}

// MaintenanceHandler exposes destructive data operations.
type MaintenanceHandler struct {
	service maintenanceService
}

// NewMaintenanceHandler constructs a maintenance handler.
func NewMaintenanceHandler(svc maintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{service: svc}
}

// Reset godoc
// @Summary Delete all students, applicants and check-ins
// @Description Admin accounts are kept.
// @Tags Maintenance
// @Security BearerAuth
// @Success 204
// @Router /admin/data [delete]
func (h *MaintenanceHandler) Reset(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
