package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/pkg/response"
)

type backupService interface {
	List(ctx context.Context) (*dto.BackupList, error)
	Create(ctx context.Context) (*dto.BackupFile, error)
	Delete(ctx context.Context, name string) error
	Restore(ctx context.Context, name string) (*dto.RestoreResult, error)
}

// BackupHandler exposes database snapshot management.
type BackupHandler struct {
	service backupService
}

// NewBackupHandler constructs a backup handler.
func NewBackupHandler(svc backupService) *BackupHandler {
	return &BackupHandler{service: svc}
}

// List godoc
// @Summary List backups, newest first
// @Tags Backups
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Create godoc
// @Summary Take a backup now
// @Tags Backups
// @Security BearerAuth
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/backups [post]
func (h *BackupHandler) Create(c *gin.Context) {
	file, err := h.service.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// Delete godoc
// @Summary Delete a backup
// @Tags Backups
// @Security BearerAuth
// @Param filename path string true "Backup file name"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/backups/{filename} [delete]
func (h *BackupHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("filename")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore the database from a backup
// @Description A pre-restore safety backup is taken first.
// @Tags Backups
// @Security BearerAuth
// @Produce json
// @Param filename path string true "Backup file name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/backups/{filename}/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	result, err := h.service.Restore(c.Request.Context(), c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
