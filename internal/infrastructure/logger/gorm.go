package logger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLSTATEs raised when a ledger write gives up waiting on a cash box lock.
// They surface to clients as 503 and are logged as warnings, not errors.
var contentionStates = map[string]string{
	"55P03": "lock_not_available",
	"40P01": "deadlock_detected",
	"57014": "query_canceled",
}

// GormLogger routes GORM output into zap under the "gorm" name
type GormLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	hideParams    bool
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a query is logged as slow;
// zero disables slow query logging
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = d }
}

// WithParameterizedQueries keeps bound values, such as amounts and
// counterparty names, out of logged SQL
func WithParameterizedQueries(on bool) GormLoggerOption {
	return func(l *GormLogger) { l.hideParams = on }
}

func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		log:           base.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, data...)
	}
}

// Trace logs one executed statement. Missing rows are never logged; lock
// contention and cancellations go out at warn level.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent || errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var (
		lvl    = gormlogger.Info
		msg    = "sql"
		reason string
	)
	switch {
	case err != nil:
		if reason = contention(err); reason != "" {
			lvl, msg = gormlogger.Warn, "sql contention"
		} else {
			lvl, msg = gormlogger.Error, "sql error"
		}
	case slow:
		lvl, msg = gormlogger.Warn, "slow sql"
	}
	if l.level < lvl {
		return
	}

	query, rows := fc()
	fields := make([]zap.Field, 0, 8)
	fields = append(fields,
		zap.String("sql", query),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	for _, key := range []contextKey{RequestIDKey, TenantIDKey, CompanyIDKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	if slow {
		fields = append(fields, zap.Duration("threshold", l.slowThreshold))
	}
	if reason != "" {
		fields = append(fields, zap.String("reason", reason))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	switch lvl {
	case gormlogger.Error:
		l.log.Error(msg, fields...)
	case gormlogger.Warn:
		l.log.Warn(msg, fields...)
	default:
		l.log.Debug(msg, fields...)
	}
}

func contention(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return contentionStates[pgErr.Code]
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline_exceeded"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return ""
}

// ParamsFilter implements gormlogger.ParamsFilter
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.hideParams {
		return sql, nil
	}
	return sql, params
}

// MapGormLogLevel maps the application log level onto GORM's; SQL text is
// only traced at info or debug
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

var (
	_ gormlogger.Interface = (*GormLogger)(nil)
	_ gorm.ParamsFilter    = (*GormLogger)(nil)
)
