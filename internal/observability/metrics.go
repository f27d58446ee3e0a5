package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig holds configuration for the metrics provider.
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPHeaders    map[string]string
	OTLPEndpoint   string        // Empty string disables OTLP export
	ExportInterval time.Duration // Zero uses the SDK default (60s)

	// Reader, when set, is attached in addition to any OTLP exporter.
	// Tests pass an sdkmetric.ManualReader here.
	Reader sdkmetric.Reader
}

// MetricsProvider wraps the OpenTelemetry meter provider with shutdown capabilities.
type MetricsProvider struct {
	provider *sdkmetric.MeterProvider
}

// InitMetrics initializes the OpenTelemetry meter provider.
// Returns a MetricsProvider that must be shut down on application exit.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*MetricsProvider, error) {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)),
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders),
			otlpmetricgrpc.WithInsecure(), // TODO: Configure TLS once a collector outside localhost is supported
		)
		if err != nil {
			return nil, fmt.Errorf("create OTLP metric exporter: %w", err)
		}
		var readerOpts []sdkmetric.PeriodicReaderOption
		if cfg.ExportInterval > 0 {
			readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.ExportInterval))
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)))
	}
	if cfg.Reader != nil {
		opts = append(opts, sdkmetric.WithReader(cfg.Reader))
	}

	provider := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(provider)

	return &MetricsProvider{provider: provider}, nil
}

// Shutdown flushes any remaining metrics and shuts down the provider.
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return mp.provider.Shutdown(ctx)
}

// Meter returns a meter for the given instrumentation name.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}
