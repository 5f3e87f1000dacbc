package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/service"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/response"
)

type applicantService interface {
	ListCurrent(ctx context.Context) (*dto.ApplicantRoster, error)
	Add(ctx context.Context, req dto.AddApplicantRequest) (*dto.ApplicantView, error)
	Remove(ctx context.Context, studentID string) error
}

type rosterService interface {
	Upload(ctx context.Context, upload service.RosterUpload) (*dto.RosterUploadResult, error)
}

// ApplicantHandler manages the current period's meal applicants.
type ApplicantHandler struct {
	applicants applicantService
	roster     rosterService
}

// NewApplicantHandler constructs an applicant handler.
func NewApplicantHandler(applicants applicantService, roster rosterService) *ApplicantHandler {
	return &ApplicantHandler{applicants: applicants, roster: roster}
}

// List godoc
// @Summary List this month's applicants
// @Tags Applicants
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/applicants [get]
func (h *ApplicantHandler) List(c *gin.Context) {
	roster, err := h.applicants.ListCurrent(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Add godoc
// @Summary Add one applicant
// @Tags Applicants
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.AddApplicantRequest true "Student id"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/applicants [post]
func (h *ApplicantHandler) Add(c *gin.Context) {
	var req dto.AddApplicantRequest
	if !bindJSON(c, &req, "invalid applicant payload") {
		return
	}
	applicant, err := h.applicants.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, applicant)
}

// Remove godoc
// @Summary Remove one applicant
// @Tags Applicants
// @Security BearerAuth
// @Param studentId path string true "Student id"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/applicants/{studentId} [delete]
func (h *ApplicantHandler) Remove(c *gin.Context) {
	if err := h.applicants.Remove(c.Request.Context(), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Upload godoc
// @Summary Import applicants from a roster spreadsheet
// @Description Scans every cell of the first sheet for 5-digit student ids. replace=true swaps the month's list instead of merging.
// @Tags Applicants
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx or csv roster"
// @Param replace formData bool false "Replace the current month's list"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /admin/applicants/upload [post]
func (h *ApplicantHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Validation(err, "file is required"))
		return
	}
	replace := false
	if raw := c.PostForm("replace"); raw != "" {
		replace, err = strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Validation(err, "replace must be a boolean"))
			return
		}
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read upload"))
		return
	}
	defer file.Close()

	result, err := h.roster.Upload(c.Request.Context(), service.RosterUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
		Replace:  replace,
	})
	if err != nil {
		var rejected *service.RosterErrors
		if errors.As(err, &rejected) {
			response.Error(c, err, map[string]interface{}{"errors": rejected.Errors})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
