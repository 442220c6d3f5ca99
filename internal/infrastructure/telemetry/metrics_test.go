package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInstruments_CollectsFailures(t *testing.T) {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	in := NewInstruments(provider.Meter(TracerName))
	in.Counter("ok.counter", "fine", "1")
	bad := in.Counter("9lives", "name must start with a letter", "1")
	in.Seconds("", "empty name", DBDurationBuckets)

	err := in.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instrument 9lives")
	assert.NotPanics(t, func() { bad.Add(context.Background(), 1) })
}

func TestObserveSince(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	in := NewInstruments(provider.Meter(TracerName))
	h := in.Seconds("job.duration", "test", DBDurationBuckets)
	require.NoError(t, in.Err())

	ObserveSince(context.Background(), h, time.Now().Add(-20*time.Millisecond), AttrOperation.String("rebuild"))

	got, ok := collect(t, reader)["job.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, got.DataPoints, 1)
	assert.GreaterOrEqual(t, got.DataPoints[0].Sum, 0.02)
}
