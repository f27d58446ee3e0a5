package observability_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/hubclock/internal/observability"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
	}{
		{"always sample", 0},
		{"ratio sample", 0.25},
		{"ratio above one keeps all", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := observability.InitTracer(context.Background(), observability.TracerConfig{
				ServiceName:    "hubclock",
				ServiceVersion: "test",
				Environment:    "test",
				SampleRatio:    tt.ratio,
			})
			require.NoError(t, err)
			require.NotNil(t, tp)

			ctx, span := observability.Tracer("test").Start(context.Background(), "edit.commit")
			span.End()
			if tt.ratio <= 0 || tt.ratio >= 1 {
				assert.True(t, trace.SpanContextFromContext(ctx).IsSampled())
			}

			assert.NoError(t, tp.Shutdown(context.Background()))
		})
	}
}

func TestTracerProvider_ShutdownNilProvider(t *testing.T) {
	tp := &observability.TracerProvider{}

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTraceIDFromContext(t *testing.T) {
	t.Run("no active span", func(t *testing.T) {
		assert.Empty(t, observability.TraceIDFromContext(context.Background()))
	})

	t.Run("active span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx, span := tp.Tracer("test").Start(context.Background(), "clock.advance")
		defer span.End()

		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), observability.TraceIDFromContext(ctx))
	})
}

func TestSpanFromContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "edit.begin")
	defer span.End()

	got := observability.SpanFromContext(ctx)

	assert.True(t, got.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanContext().SpanID())
}
