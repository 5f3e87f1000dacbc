package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/middleware"
	"github.com/noah-isme/meal-checkin-api/internal/service"
	"github.com/noah-isme/meal-checkin-api/pkg/response"
)

type checkInLogService interface {
	ListByDate(ctx context.Context, date string) (*dto.CheckInLog, error)
	Summary(ctx context.Context, date string) (*dto.CheckInSummary, error)
	Cancel(ctx context.Context, id string) error
}

type reportExporter interface {
	Export(ctx context.Context, date, format string) (*service.Report, error)
}

// CheckInHandler serves the admin view of the daily log.
type CheckInHandler struct {
	checkIns checkInLogService
	reports  reportExporter
}

// NewCheckInHandler constructs a check-in handler.
func NewCheckInHandler(checkIns checkInLogService, reports reportExporter) *CheckInHandler {
	return &CheckInHandler{checkIns: checkIns, reports: reports}
}

// List godoc
// @Summary Check-ins of a date
// @Tags CheckIns
// @Security BearerAuth
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/checkins [get]
func (h *CheckInHandler) List(c *gin.Context) {
	log, err := h.checkIns.ListByDate(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "date", log.Date)
	response.JSON(c, http.StatusOK, log, nil, withMeta(c))
}

// Summary godoc
// @Summary Daily totals
// @Tags CheckIns
// @Security BearerAuth
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /admin/checkins/summary [get]
func (h *CheckInHandler) Summary(c *gin.Context) {
	summary, err := h.checkIns.Summary(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Download the daily report
// @Tags CheckIns
// @Security BearerAuth
// @Produce octet-stream
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/checkins/export [get]
func (h *CheckInHandler) Export(c *gin.Context) {
	report, err := h.reports.Export(c.Request.Context(), c.Query("date"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, report.Filename, report.ContentType, report.Data)
}

// Cancel godoc
// @Summary Cancel a check-in
// @Tags CheckIns
// @Security BearerAuth
// @Param id path string true "Check-in id"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/checkins/{id} [delete]
func (h *CheckInHandler) Cancel(c *gin.Context) {
	if err := h.checkIns.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
