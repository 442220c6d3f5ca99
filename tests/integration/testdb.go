// Package integration runs the ledger against a real PostgreSQL started by
// testcontainers.
package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/migration"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// server is the one container shared by every test of the package; each
// test gets its own database on it
var server struct {
	once      sync.Once
	container *tcpostgres.PostgresContainer
	base      config.DatabaseConfig
	err       error
	seq       atomic.Int64
}

// TestDB is a freshly migrated database owned by one test
type TestDB struct {
	DB   *gorm.DB
	Name string
}

func startServer() {
	ctx := context.Background()
	c, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		server.err = fmt.Errorf("start postgres: %w", err)
		return
	}
	server.container = c

	host, err := c.Host(ctx)
	if err != nil {
		server.err = err
		return
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		server.err = err
		return
	}
	server.base = config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "postgres",
		DBName:          "postgres",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 1,
		LockTimeout:     5 * time.Second,
	}
}

// stopServer terminates the shared container if a test started it
func stopServer() {
	if server.container != nil {
		_ = server.container.Terminate(context.Background())
	}
}

// NewTestDB creates and migrates a database for t and drops it on cleanup
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	server.once.Do(startServer)
	require.NoError(t, server.err)

	name := fmt.Sprintf("ledger_%d", server.seq.Add(1))
	admin := open(t, server.base)
	require.NoError(t, admin.DB.Exec("CREATE DATABASE "+name).Error)

	cfg := server.base
	cfg.DBName = name
	db := open(t, cfg)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.NewFromFS(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(), "migrate %s", name)

	t.Cleanup(func() {
		_ = db.Close()
		if err := admin.DB.Exec("DROP DATABASE IF EXISTS " + name + " WITH (FORCE)").Error; err != nil {
			t.Logf("drop %s: %v", name, err)
		}
		_ = admin.Close()
	})
	return &TestDB{DB: db.DB, Name: name}
}

func open(t *testing.T, cfg config.DatabaseConfig) *persistence.Database {
	t.Helper()

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := persistence.Open(&cfg, logger.NewGormLogger(zaptest.NewLogger(t), level))
	require.NoError(t, err, "open %s", cfg.DBName)
	return db
}
