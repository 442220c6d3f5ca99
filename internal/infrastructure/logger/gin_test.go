package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func httpLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	for _, e := range recorded.All() {
		if e.Message == accessLogMessage {
			return e
		}
	}
	t.Fatal("no access log entry")
	return observer.LoggedEntry{}
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGinMiddleware_LevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusConflict, zapcore.WarnLevel},
		{http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			r := gin.New()
			r.Use(GinMiddleware(zap.New(core)))
			r.GET("/x", func(c *gin.Context) { c.Status(tt.status) })

			serve(r, http.MethodGet, "/x")
			entry := httpLog(t, recorded)
			assert.Equal(t, tt.level, entry.Level)
			assert.EqualValues(t, tt.status, entry.ContextMap()["status"])
		})
	}
}

func TestGinMiddleware_Fields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)
	scope := shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-42")
		c.Next()
	})
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/api/v1/cash-boxes", func(c *gin.Context) {
		c.Set(GinScopeKey, scope)
		assert.NotNil(t, FromContext(c.Request.Context()))
		GetGinLogger(c).Info("listing")
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/api/v1/cash-boxes?include_archived=true")

	entry := httpLog(t, recorded)
	fields := entry.ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/api/v1/cash-boxes", fields["path"])
	assert.Equal(t, "include_archived=true", fields["query"])
	assert.Equal(t, scope.TenantID.String(), fields["tenant_id"])
	assert.Equal(t, scope.CompanyID.String(), fields["company_id"])

	var handlerEntry bool
	for _, e := range recorded.All() {
		if e.Message == "listing" {
			handlerEntry = true
			assert.Equal(t, "req-42", e.ContextMap()["request_id"])
		}
	}
	assert.True(t, handlerEntry)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "Panic recovered", recorded.All()[0].Message)
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))

	c.Set(GinLoggerKey, "wrong type")
	assert.NotNil(t, GetGinLogger(c))
}
