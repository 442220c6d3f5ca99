package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider ships zap entries to the collector through the otelzap
// bridge
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	scope    string
}

func NewLoggerProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{scope: cfg.ServiceName}
	if !cfg.Enabled || !cfg.LogsEnabled {
		logger.Info("Log export disabled")
		return lp, nil
	}

	exporter, err := otlploggrpc.New(ctx, otlpOptions(cfg, otlploggrpc.WithEndpoint, otlploggrpc.WithInsecure)...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)
	logger.Info("Log export enabled", zap.String("collector_endpoint", cfg.CollectorEndpoint))
	return lp, nil
}

func (lp *LoggerProvider) IsEnabled() bool {
	return lp.provider != nil
}

// Core is the bridge core, limited to floor and above; tee it with the console
// core through logger.New
func (lp *LoggerProvider) Core(floor zapcore.Level) zapcore.Core {
	if lp.provider == nil {
		return zapcore.NewNopCore()
	}
	return minLevel{
		Core:  otelzap.NewCore(lp.scope, otelzap.WithLoggerProvider(lp.provider)),
		floor: floor,
	}
}

func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	return shutdown(ctx, "logger provider", lp.provider.Shutdown)
}

// minLevel drops entries below floor before they reach the bridge
type minLevel struct {
	zapcore.Core
	floor zapcore.Level
}

func (c minLevel) Enabled(l zapcore.Level) bool {
	return l >= c.floor && c.Core.Enabled(l)
}

func (c minLevel) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c minLevel) With(fields []zapcore.Field) zapcore.Core {
	return minLevel{Core: c.Core.With(fields), floor: c.floor}
}
