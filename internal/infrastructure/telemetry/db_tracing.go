package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQueryThresh = 200 * time.Millisecond

type queryStartKey struct{}

// DBTracingPlugin registers otelgorm and flags slow statements on the active
// span and in the log.
type DBTracingPlugin struct {
	logFullSQL bool
	slow       time.Duration
	logger     *zap.Logger
}

// NewDBTracingPlugin builds the plugin from the telemetry settings
func NewDBTracingPlugin(cfg config.TelemetryConfig, logger *zap.Logger) *DBTracingPlugin {
	slow := cfg.DBSlowQueryThresh
	if slow <= 0 {
		slow = defaultSlowQueryThresh
	}
	return &DBTracingPlugin{logFullSQL: cfg.DBLogFullSQL, slow: slow, logger: logger}
}

// Register installs the otelgorm plugin and the timing callbacks on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !p.logFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	return p.RegisterSlowQueryCallbacks(db)
}

// RegisterSlowQueryCallbacks installs only the timing callbacks
func (p *DBTracingPlugin) RegisterSlowQueryCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	for _, err := range []error{
		cb.Create().Before("gorm:create").Register("slow_query:before_create", p.before),
		cb.Query().Before("gorm:query").Register("slow_query:before_query", p.before),
		cb.Update().Before("gorm:update").Register("slow_query:before_update", p.before),
		cb.Delete().Before("gorm:delete").Register("slow_query:before_delete", p.before),
		cb.Row().Before("gorm:row").Register("slow_query:before_row", p.before),
		cb.Raw().Before("gorm:raw").Register("slow_query:before_raw", p.before),
		cb.Create().After("gorm:create").Register("slow_query:after_create", p.after),
		cb.Query().After("gorm:query").Register("slow_query:after_query", p.after),
		cb.Update().After("gorm:update").Register("slow_query:after_update", p.after),
		cb.Delete().After("gorm:delete").Register("slow_query:after_delete", p.after),
		cb.Row().After("gorm:row").Register("slow_query:after_row", p.after),
		cb.Raw().After("gorm:raw").Register("slow_query:after_raw", p.after),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= p.slow {
		return
	}
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
	p.logger.Warn("slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Duration("threshold", p.slow),
		zap.String("trace_id", TraceID(ctx)),
	)
}
