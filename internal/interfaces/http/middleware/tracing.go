package middleware

import (
	"net/http"

	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens a server span per request, named after the route template
func Tracing(service string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passThrough
	}
	return otelgin.Middleware(service)
}

// SpanStatus fails the server span on 5xx and tags it with the status on 4xx
func SpanStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, http.StatusText(status))
		case status >= http.StatusBadRequest:
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
	}
}

// SpanScope copies the request id and the caller's books onto the server
// span. It belongs after JWTAuthMiddleware.
func SpanScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			span.SetAttributes(scopeAttributes(c)...)
		}
		c.Next()
	}
}

func scopeAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	scope, ok := GetScope(c)
	if !ok {
		return attrs
	}
	attrs = append(attrs,
		attribute.String(telemetry.SpanAttrTenantID, scope.TenantID.String()),
		attribute.String(telemetry.SpanAttrActorID, scope.ActorID.String()),
	)
	if scope.CompanyID != uuid.Nil {
		attrs = append(attrs, attribute.String(telemetry.SpanAttrCompanyID, scope.CompanyID.String()))
	}
	return attrs
}
