package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestTracing_RecordsScope(t *testing.T) {
	recorder := installRecorder(t)
	scope := shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New())

	router := gin.New()
	router.Use(RequestID(), Tracing("backoffice", true))
	router.Use(func(c *gin.Context) { c.Set(ScopeKey, scope) })
	router.Use(SpanScope())
	router.GET("/cash-boxes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := doRequest(router, http.MethodGet, "/cash-boxes/42", map[string]string{RequestIDHeader: "req-7"})
	require.Equal(t, http.StatusOK, rec.Code)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Name(), "/cash-boxes/:id")

	attrs := map[string]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "req-7", attrs["request_id"])
	assert.Equal(t, scope.TenantID.String(), attrs["tenant_id"])
	assert.Equal(t, scope.ActorID.String(), attrs["actor_id"])
	assert.Equal(t, scope.CompanyID.String(), attrs["company_id"])
}

func TestTracing_MarksServerErrors(t *testing.T) {
	recorder := installRecorder(t)

	router := gin.New()
	router.Use(Tracing("backoffice", true), SpanStatus())
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	doRequest(router, http.MethodGet, "/boom", nil)
	doRequest(router, http.MethodGet, "/missing", nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.NotEqual(t, codes.Error, ended[1].Status().Code)
}

func TestTracing_Disabled(t *testing.T) {
	recorder := installRecorder(t)

	router := gin.New()
	router.Use(Tracing("backoffice", false))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := doRequest(router, http.MethodGet, "/test", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, recorder.Ended())
}
