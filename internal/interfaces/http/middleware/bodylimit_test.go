package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitEngine(limit int64) *gin.Engine {
	engine := gin.New()
	engine.Use(BodyLimit(limit))
	echo := func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.String(http.StatusOK, "%d", len(data))
	}
	engine.POST("/spendings", echo)
	engine.GET("/cash-boxes", func(c *gin.Context) { c.String(http.StatusOK, "list") })
	return engine
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		chunked  bool
		wantCode int
		wantBody string
	}{
		{name: "within limit", method: http.MethodPost, path: "/spendings", body: `{"sum":"10.00"}`, wantCode: http.StatusOK, wantBody: "15"},
		{name: "exactly at limit", method: http.MethodPost, path: "/spendings", body: strings.Repeat("x", 64), wantCode: http.StatusOK, wantBody: "64"},
		{name: "declared length over limit", method: http.MethodPost, path: "/spendings", body: strings.Repeat("x", 65), wantCode: http.StatusRequestEntityTooLarge, wantBody: dto.ErrCodeRequestTooLarge},
		{name: "chunked body over limit", method: http.MethodPost, path: "/spendings", body: strings.Repeat("x", 200), chunked: true, wantCode: http.StatusBadRequest, wantBody: "too large"},
		{name: "no body", method: http.MethodGet, path: "/cash-boxes", wantCode: http.StatusOK, wantBody: "list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()

			bodyLimitEngine(64).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
