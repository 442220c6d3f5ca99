package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records ledger write outcomes. It satisfies the ledger
// service's Metrics port.
type LedgerMetrics struct {
	operations        metric.Int64Counter
	insufficientFunds metric.Int64Counter
	lockWait          metric.Float64Histogram
}

func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	in := NewInstruments(meter)
	m := &LedgerMetrics{
		operations:        in.Counter("ledger.operations", "Ledger writes by operation and outcome", "{operation}"),
		insufficientFunds: in.Counter("ledger.insufficient_funds", "Writes rejected for overdrawing a cash box", "{operation}"),
		lockWait:          in.Seconds("ledger.lock_wait", "Time spent acquiring cash box row locks", LockWaitBuckets),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LedgerMetrics) RecordOperation(ctx context.Context, op, outcome string) {
	m.operations.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(op), AttrOutcome.String(outcome)))
}

func (m *LedgerMetrics) RecordInsufficientFunds(ctx context.Context, op string) {
	m.insufficientFunds.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(op)))
}

func (m *LedgerMetrics) RecordLockWait(ctx context.Context, op string, d time.Duration) {
	m.lockWait.Record(ctx, d.Seconds(), metric.WithAttributes(AttrOperation.String(op)))
}
