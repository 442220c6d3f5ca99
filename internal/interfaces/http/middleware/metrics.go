package middleware

import (
	"time"

	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics counts requests by route and status, times them and tracks
// the in-flight count. A nil meter, or one whose instruments cannot be
// declared, leaves the chain untouched.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return passThrough
	}
	in := telemetry.NewInstruments(meter)
	requests := in.Counter("http.server.requests", "HTTP requests served", "{request}")
	latency := in.Seconds("http.server.duration", "HTTP request latency", telemetry.HTTPDurationBuckets)
	inFlight := in.UpDownCounter("http.server.active_requests", "HTTP requests in progress", "{request}")
	if in.Err() != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		inFlight.Add(ctx, 1)
		defer inFlight.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		telemetry.ObserveSince(ctx, latency, start, attrs...)

		attrs = append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
		if scope, ok := GetScope(c); ok {
			attrs = append(attrs, telemetry.AttrTenantID.String(scope.TenantID.String()))
		}
		requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}
