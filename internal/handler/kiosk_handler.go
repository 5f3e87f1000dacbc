package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/service"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/response"
)

type kioskCheckInService interface {
	CheckIn(ctx context.Context, req dto.CheckInRequest) (*dto.CheckInResult, error)
	Today(ctx context.Context) (*dto.CheckInLog, error)
}

type kioskStudentService interface {
	Lookup(ctx context.Context, req dto.LookupStudentRequest) (*dto.LookupStudentResult, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResult, error)
	ChangePIN(ctx context.Context, req dto.ChangePINRequest) (*dto.StudentView, error)
}

type kioskPhotoService interface {
	Save(ctx context.Context, studentID string, image io.Reader) (*dto.PhotoUploadResult, error)
}

// KioskHandler serves the unauthenticated endpoints used by the check-in terminal.
type KioskHandler struct {
	checkIns kioskCheckInService
	students kioskStudentService
	photos   kioskPhotoService
}

// NewKioskHandler constructs a kiosk handler.
func NewKioskHandler(checkIns kioskCheckInService, students kioskStudentService, photos kioskPhotoService) *KioskHandler {
	return &KioskHandler{checkIns: checkIns, students: students, photos: photos}
}

// CheckIn godoc
// @Summary Record a meal check-in
// @Description Classifies a card tap or student id entry. An unknown card answers 404 NEEDS_REGISTRATION with meta.cardId.
// @Tags Kiosk
// @Accept json
// @Produce json
// @Param payload body dto.CheckInRequest true "Card id, student id or raw input"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /kiosk/check [post]
func (h *KioskHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if !bindJSON(c, &req, "invalid check-in payload") {
		return
	}

	result, err := h.checkIns.CheckIn(c.Request.Context(), req)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNeedsRegistration.Code) {
			meta := map[string]interface{}{"needsRegistration": true}
			var unregistered *service.UnregisteredCardError
			if errors.As(err, &unregistered) {
				meta["cardId"] = unregistered.CardID
			}
			response.Error(c, err, meta)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil, withMeta(c))
}

// Today godoc
// @Summary Today's check-in log
// @Tags Kiosk
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /kiosk/checkins/today [get]
func (h *KioskHandler) Today(c *gin.Context) {
	log, err := h.checkIns.Today(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// Lookup godoc
// @Summary Check whether a student id is registered
// @Tags Kiosk
// @Accept json
// @Produce json
// @Param payload body dto.LookupStudentRequest true "Student id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /kiosk/students/lookup [post]
func (h *KioskHandler) Lookup(c *gin.Context) {
	var req dto.LookupStudentRequest
	if !bindJSON(c, &req, "invalid lookup payload") {
		return
	}
	result, err := h.students.Lookup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Register godoc
// @Summary Self-register a card or a cardless student
// @Tags Kiosk
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /kiosk/register [post]
func (h *KioskHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	result, err := h.students.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ChangePIN godoc
// @Summary Change the PIN linked to a card
// @Tags Kiosk
// @Accept json
// @Produce json
// @Param payload body dto.ChangePINRequest true "Card id and new PIN"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /kiosk/change-pin [post]
func (h *KioskHandler) ChangePIN(c *gin.Context) {
	var req dto.ChangePINRequest
	if !bindJSON(c, &req, "invalid pin payload") {
		return
	}
	student, err := h.students.ChangePIN(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UploadPhoto godoc
// @Summary Store a kiosk camera capture
// @Description Multipart form with the JPEG in "image" and the student id in "student_id". The returned photo_path is sent back with the check-in.
// @Tags Kiosk
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "JPEG capture"
// @Param student_id formData string true "Student id"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /kiosk/photos [post]
func (h *KioskHandler) UploadPhoto(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Validation(err, "image file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read upload"))
		return
	}
	defer file.Close()

	result, err := h.photos.Save(c.Request.Context(), c.PostForm("student_id"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
