package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// DBMetrics reports connection pool state and per-statement counts and
// latency.
type DBMetrics struct {
	queryTotal    metric.Int64Counter
	queryDuration metric.Float64Histogram
	registration  metric.Registration
}

// NewDBMetrics registers the instruments on meter. Pool gauges are read from
// sqlDB on every collection.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB) (*DBMetrics, error) {
	in := NewInstruments(meter)
	m := &DBMetrics{
		queryTotal:    in.Counter("db.query.total", "Database statements by operation", "{query}"),
		queryDuration: in.Seconds("db.query.duration", "Database statement latency", DBDurationBuckets),
	}
	connections := in.Gauge("db.pool.connections", "Connections in the pool by state", "{connection}")
	maxOpen := in.Gauge("db.pool.connections_max", "Maximum open connections", "{connection}")
	if err := in.Err(); err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		return nil
	}, connections, maxOpen)
	if err != nil {
		return nil, err
	}
	m.registration = reg
	return m, nil
}

type metricsStartKey struct{}

// Register installs statement timing callbacks on db
func (m *DBMetrics) Register(db *gorm.DB) error {
	cb := db.Callback()
	for _, err := range []error{
		cb.Create().Before("gorm:create").Register("metrics:before_create", m.before),
		cb.Query().Before("gorm:query").Register("metrics:before_query", m.before),
		cb.Update().Before("gorm:update").Register("metrics:before_update", m.before),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", m.before),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", m.before),
		cb.Create().After("gorm:create").Register("metrics:after_create", m.after("insert")),
		cb.Query().After("gorm:query").Register("metrics:after_query", m.after("select")),
		cb.Update().After("gorm:update").Register("metrics:after_update", m.after("update")),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", m.after("delete")),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", m.after("raw")),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *DBMetrics) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, metricsStartKey{}, time.Now())
	}
}

func (m *DBMetrics) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(strings.Trim(db.Statement.Table, `"`))}
		m.queryTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
		if start, ok := ctx.Value(metricsStartKey{}).(time.Time); ok {
			ObserveSince(ctx, m.queryDuration, start, attrs...)
		}
	}
}

// Close unregisters the pool gauges
func (m *DBMetrics) Close() error {
	return m.registration.Unregister()
}
