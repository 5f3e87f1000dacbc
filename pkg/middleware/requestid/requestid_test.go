package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, inbound string) (string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(HeaderKey, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return seen, w.Header().Get(HeaderKey)
}

func TestMiddlewareGeneratesID(t *testing.T) {
	seen, header := serve(t, "")
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, header)
}

func TestMiddlewareReusesInboundID(t *testing.T) {
	seen, header := serve(t, "kiosk-1-abc")
	assert.Equal(t, "kiosk-1-abc", seen)
	assert.Equal(t, "kiosk-1-abc", header)
}

func TestMiddlewareReplacesOversizedID(t *testing.T) {
	seen, _ := serve(t, strings.Repeat("x", 200))
	assert.Len(t, seen, 36)
}
