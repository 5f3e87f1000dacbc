package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/meal-checkin-api/internal/middleware"
	"github.com/noah-isme/meal-checkin-api/internal/models"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/response"
)

func adminFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	claims, ok := middleware.CurrentAdmin(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "admin login required"))
		return nil, false
	}
	return claims, true
}

// bindJSON decodes the body into dest and reports a 400 on malformed payloads.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Validation(err, message))
		return false
	}
	return true
}

func withMeta(c *gin.Context) map[string]interface{} {
	return middleware.ExtractMeta(c)
}
