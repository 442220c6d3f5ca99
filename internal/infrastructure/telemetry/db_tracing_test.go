package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type probe struct {
	ID   uint
	Name string
}

func openProbeDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&probe{}))
	return db
}

func TestDBTracingPlugin_LogsSlowQueries(t *testing.T) {
	db := openProbeDB(t)
	core, logs := observer.New(zapcore.WarnLevel)

	plugin := NewDBTracingPlugin(config.TelemetryConfig{DBSlowQueryThresh: time.Nanosecond}, zap.New(core))
	require.NoError(t, plugin.RegisterSlowQueryCallbacks(db))

	require.NoError(t, db.WithContext(context.Background()).Create(&probe{Name: "a"}).Error)

	slow := logs.FilterMessage("slow query").All()
	require.NotEmpty(t, slow)
	assert.Equal(t, "probes", slow[0].ContextMap()["table"])
}

func TestDBTracingPlugin_FastQueriesAreQuiet(t *testing.T) {
	db := openProbeDB(t)
	core, logs := observer.New(zapcore.WarnLevel)

	plugin := NewDBTracingPlugin(config.TelemetryConfig{DBSlowQueryThresh: time.Hour}, zap.New(core))
	require.NoError(t, plugin.RegisterSlowQueryCallbacks(db))

	var rows []probe
	require.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)
	assert.Zero(t, logs.Len())
}

func TestNewDBTracingPlugin_DefaultThreshold(t *testing.T) {
	plugin := NewDBTracingPlugin(config.TelemetryConfig{}, zap.NewNop())
	assert.Equal(t, defaultSlowQueryThresh, plugin.slow)
}
