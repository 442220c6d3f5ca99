package logger

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	LoggerKey    contextKey = "logger"
	RequestIDKey contextKey = "request_id"
	TenantIDKey  contextKey = "tenant_id"
	CompanyIDKey contextKey = "company_id"
	ActorIDKey   contextKey = "actor_id"
)

// WithContext stores l as the request logger
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// FromContext returns the request logger, tagged with trace_id and span_id
// when ctx carries a sampled span. Without a stored logger it returns a nop.
func FromContext(ctx context.Context) *zap.Logger {
	l, ok := ctx.Value(LoggerKey).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With(
			zap.Stringer("trace_id", sc.TraceID()),
			zap.Stringer("span_id", sc.SpanID()),
		)
	}
	return l
}

// WithRequestID tags ctx and l with the request id
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	l = l.With(zap.String(string(RequestIDKey), requestID))
	return WithContext(ctx, l), l
}

// WithScope tags ctx and l with the books and actor of scope. Nil ids are
// left out, so system jobs log without an actor.
func WithScope(ctx context.Context, l *zap.Logger, scope shared.RequestScope) (context.Context, *zap.Logger) {
	var fields []zap.Field
	for _, id := range []struct {
		key   contextKey
		value uuid.UUID
	}{
		{TenantIDKey, scope.TenantID},
		{CompanyIDKey, scope.CompanyID},
		{ActorIDKey, scope.ActorID},
	} {
		if id.value == uuid.Nil {
			continue
		}
		ctx = context.WithValue(ctx, id.key, id.value.String())
		fields = append(fields, zap.String(string(id.key), id.value.String()))
	}
	l = l.With(fields...)
	return WithContext(ctx, l), l
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
