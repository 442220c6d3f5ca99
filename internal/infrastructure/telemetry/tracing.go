package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of service spans
const TracerName = "backoffice"

// Span attribute keys shared by the ledger services
const (
	SpanAttrTenantID      = "tenant_id"
	SpanAttrCompanyID     = "company_id"
	SpanAttrActorID       = "actor_id"
	SpanAttrCashBoxID     = "cash_box_id"
	SpanAttrContractID    = "contract_id"
	SpanAttrTransactionID = "transaction_id"
	SpanAttrAmount        = "amount"
	SpanAttrCurrency      = "currency"
)

// StartServiceSpan starts "{service}.{method}", e.g. "ledger.create_spending",
// on the global tracer provider. keyValues alternate key and value; pairs
// whose key is not a string are skipped. The caller ends the span.
func StartServiceSpan(ctx context.Context, service, method string, keyValues ...any) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(pairs(keyValues)...),
	)
}

func SetAttributes(span trace.Span, keyValues ...any) {
	span.SetAttributes(pairs(keyValues)...)
}

// RecordError marks span failed with err; nil is ignored
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// TraceID returns the trace id carried by ctx, or "" outside a sampled trace
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func pairs(keyValues []any) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, kv(key, keyValues[i+1]))
		}
	}
	return attrs
}

func kv(key string, value any) attribute.KeyValue {
	k := attribute.Key(key)
	switch v := value.(type) {
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case float64:
		return k.Float64(v)
	case []string:
		return k.StringSlice(v)
	case fmt.Stringer:
		// uuid.UUID and decimal.Decimal land here
		return k.String(v.String())
	}
	return k.String(fmt.Sprint(value))
}
