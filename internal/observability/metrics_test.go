package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/aelexs/hubclock/internal/observability"
)

func TestInitMetrics_NoEndpoint(t *testing.T) {
	mp, err := observability.InitMetrics(context.Background(), observability.MetricsConfig{
		ServiceName:    "hubclock",
		ServiceVersion: "test",
		Environment:    "test",
		ExportInterval: time.Second,
	})

	require.NoError(t, err)
	require.NotNil(t, mp)
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestInitMetrics_ManualReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp, err := observability.InitMetrics(context.Background(), observability.MetricsConfig{
		ServiceName: "hubclock",
		Environment: "test",
		Reader:      reader,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := observability.Meter("test").Int64Counter("clock_test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "clock_test_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(3), sum.DataPoints[0].Value)
			found = true
		}
	}
	assert.True(t, found, "counter should be collected")
}

func TestMetricsProvider_ShutdownNilProvider(t *testing.T) {
	mp := &observability.MetricsProvider{}

	assert.NoError(t, mp.Shutdown(context.Background()))
}
