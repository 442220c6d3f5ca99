package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const defaultMetricsInterval = time.Minute

// MeterProvider pushes metrics to the collector on a fixed interval. The
// zero value hands out meters from the global provider.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled || !cfg.MetricsEnabled {
		logger.Info("Metrics disabled")
		return mp, nil
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}
	exporter, err := otlpmetricgrpc.New(ctx, otlpOptions(cfg, otlpmetricgrpc.WithEndpoint, otlpmetricgrpc.WithInsecure)...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.provider)
	logger.Info("Metrics exporting",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("interval", interval),
	)
	return mp, nil
}

func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

func (mp *MeterProvider) IsEnabled() bool {
	return mp.provider != nil
}

// Shutdown pushes the last collection
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return shutdown(ctx, "meter provider", mp.provider.Shutdown)
}

// Instruments declares instruments on one meter and remembers every failure,
// so a constructor checks Err once instead of after each declaration. A
// failed declaration yields a no-op instrument.
type Instruments struct {
	meter metric.Meter
	errs  []error
}

func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

func (in *Instruments) Counter(name, description, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
		return noop.Int64Counter{}
	}
	return c
}

func (in *Instruments) UpDownCounter(name, description, unit string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
		return noop.Int64UpDownCounter{}
	}
	return c
}

// Seconds declares a latency histogram recorded in seconds
func (in *Instruments) Seconds(name, description string, buckets []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		in.fail(name, err)
		return noop.Float64Histogram{}
	}
	return h
}

func (in *Instruments) Gauge(name, description, unit string) metric.Int64ObservableGauge {
	g, err := in.meter.Int64ObservableGauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
		return noop.Int64ObservableGauge{}
	}
	return g
}

func (in *Instruments) fail(name string, err error) {
	in.errs = append(in.errs, fmt.Errorf("instrument %s: %w", name, err))
}

// Err joins the failures seen so far
func (in *Instruments) Err() error {
	return errors.Join(in.errs...)
}

// ObserveSince records the time elapsed since start
func ObserveSince(ctx context.Context, h metric.Float64Histogram, start time.Time, attrs ...attribute.KeyValue) {
	h.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
}

// Metric attribute keys
var (
	AttrOperation      = attribute.Key("op")
	AttrOutcome        = attribute.Key("outcome")
	AttrTenantID       = attribute.Key("tenant_id")
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrDBOperation    = attribute.Key("db.operation")
	AttrDBTable        = attribute.Key("db.table")
	AttrDBState        = attribute.Key("db.pool.state")
)

// Histogram buckets in seconds
var (
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	DBDurationBuckets   = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	LockWaitBuckets     = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
)
