package logger

import (
	"io"
	"net/http"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Gin context keys shared with the HTTP middleware
const (
	GinLoggerKey    = "logger"
	GinRequestIDKey = "request_id"
	GinScopeKey     = "request_scope"
)

const accessLogMessage = "request"

// GinMiddleware writes one access log line per request and hands handlers a
// logger tagged with the request id. Tenant and company are set by the auth
// middleware further down the chain, so they are read once the chain returns.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		ctx, l := WithRequestID(req.Context(), base, c.GetString(GinRequestIDKey))
		l = l.With(zap.String("method", req.Method), zap.String("path", req.URL.Path))
		ctx = WithContext(ctx, l)
		c.Set(GinLoggerKey, l)
		c.Request = req.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		ce := l.Check(levelForStatus(status), accessLogMessage)
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if q := req.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if s, ok := c.Value(GinScopeKey).(shared.RequestScope); ok {
			fields = append(fields, zap.Stringer("tenant_id", s.TenantID))
			if s.CompanyID != uuid.Nil {
				fields = append(fields, zap.Stringer("company_id", s.CompanyID))
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		ce.Write(fields...)
	}
}

func levelForStatus(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a handler panic into a logged 500 with the usual error
// envelope
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		l.Error("Panic recovered",
			zap.String("request_id", c.GetString(GinRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("error", recovered),
			zap.Stack("stacktrace"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   gin.H{"code": "ERR_INTERNAL", "message": "internal server error"},
		})
	})
}

// GetGinLogger is the request logger, or a nop outside GinMiddleware
func GetGinLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Value(GinLoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
