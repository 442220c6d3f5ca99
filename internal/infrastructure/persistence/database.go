package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pingTimeout = 3 * time.Second

// Database is the ledger's Postgres handle. Every session it opens carries
// the tenant guard and the lock/statement timeouts from the DSN.
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// Open connects, sizes the pool and pings once before returning
func Open(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := tenant.RegisterGuard(gdb); err != nil {
		return nil, fmt.Errorf("tenant guard: %w", err)
	}

	d, err := wrap(gdb)
	if err != nil {
		return nil, err
	}
	d.sql.SetMaxOpenConns(cfg.MaxOpenConns)
	d.sql.SetMaxIdleConns(cfg.MaxIdleConns)
	d.sql.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	d.sql.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func wrap(gdb *gorm.DB) (*Database, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return &Database{DB: gdb, sql: sqlDB}, nil
}

// Ping gives the server pingTimeout to answer
func (d *Database) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := d.sql.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.sql.Close()
}
