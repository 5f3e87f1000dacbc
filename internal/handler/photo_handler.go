package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/response"
)

type photoOpener interface {
	Open(ctx context.Context, token string) (*os.File, error)
}

// PhotoHandler streams captures referenced by signed links.
type PhotoHandler struct {
	photos photoOpener
}

// NewPhotoHandler constructs a photo handler.
func NewPhotoHandler(photos photoOpener) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// Serve godoc
// @Summary Download a check-in photo
// @Tags Photos
// @Produce jpeg
// @Param token query string true "Signed photo token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /photos [get]
func (h *PhotoHandler) Serve(c *gin.Context) {
	file, err := h.photos.Open(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read photo"))
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Content-Type", "image/jpeg")
	http.ServeContent(c.Writer, c.Request, filepath.Base(info.Name()), info.ModTime(), file)
}
