// Package runner provides the clock process lifecycle: signal handling,
// config loading, observability init, the driver and console goroutines,
// and telemetry flush on exit.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/aelexs/hubclock/internal/config"
	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/hubclock/app"
	"github.com/aelexs/hubclock/internal/hubclock/driver"
	"github.com/aelexs/hubclock/internal/hubclock/port"
	"github.com/aelexs/hubclock/internal/observability"
)

// Params configures a clock run. Nil streams default to the process's
// stdin, stdout and stderr.
type Params struct {
	// Name identifies the process in logs and telemetry.
	Name    string
	Version string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Clock paces the driver; nil uses the system clock.
	Clock domain.Clock

	ConfigOptions []config.LoadOption
}

// Run executes the full clock lifecycle. It returns when the console quits,
// input ends while the clock is stopped, or ctx is cancelled (including by
// SIGINT/SIGTERM).
func Run(ctx context.Context, p Params) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	stdin, stdout, stderr := p.Stdin, p.Stdout, p.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := config.Load(ctx, p.ConfigOptions...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	serviceName := cfg.OTEL.ServiceName
	if p.Name != "" {
		serviceName = p.Name
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: serviceName,
		Environment: cfg.Environment,
	}, stderr)

	// --- Startup order: tracer -> metrics -> clock ---

	tracerProvider, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: p.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		OTLPHeaders:    cfg.OTLPHeaders(),
		SampleRatio:    cfg.OTEL.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}

	metricsProvider, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: p.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		OTLPHeaders:    cfg.OTLPHeaders(),
		ExportInterval: cfg.OTEL.ExportInterval,
	})
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	// Flush OTEL on the way out (reverse of startup: metrics first, then tracer).
	defer func() {
		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := metricsProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown metrics", slog.String("error", shutdownErr.Error()))
		}
		if shutdownErr := tracerProvider.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", shutdownErr.Error()))
		}
		logger.Info("shutdown complete")
	}()

	initial := cfg.InitialTime()
	svc := app.NewService(app.ServiceConfig{Initial: initial, Logger: logger})
	drv := driver.New(driver.Config{
		Advancer:  svc,
		Clock:     p.Clock,
		Speed:     cfg.Clock.Speed,
		Autostart: cfg.Clock.Autostart,
		Logger:    logger,
	})
	console := port.NewConsole(port.ConsoleConfig{
		Service: svc,
		Driver:  drv,
		In:      stdin,
		Out:     stdout,
		Format:  domain.DisplayFormat(cfg.Display.Format),
		Styled:  port.ColorEnabled(cfg.Display.Color, stdout),
		Logger:  logger,
	})

	logTelemetry(logger, cfg)
	logger.Info("clock starting",
		slog.Any("clock", initial),
		slog.Bool("running", drv.Running()),
		slog.Duration("tick_every", drv.Period()),
	)

	// The console ending (quit or closed input) ends the whole run.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- Structured concurrency via errgroup ---
	g, gctx := errgroup.WithContext(ctx)

	// Goroutine 1: pace the clock
	g.Go(func() error {
		return drv.Run(gctx)
	})

	// Goroutine 2: read commands and render
	g.Go(func() error {
		defer cancel()
		return console.Run(gctx)
	})

	return g.Wait()
}

// logTelemetry reports where spans and metrics go. Running in prod without
// a collector is allowed but warned about.
func logTelemetry(logger *slog.Logger, cfg *config.Config) {
	switch {
	case cfg.OTEL.Endpoint != "":
		logger.Info("telemetry configured",
			slog.String("otlp_endpoint", cfg.OTEL.Endpoint),
			slog.Any("auth_token", cfg.OTEL.AuthToken),
		)
	case cfg.IsProd():
		logger.Warn("no otlp endpoint in prod, telemetry is not exported")
	case cfg.IsLocal():
		logger.Debug("local environment, telemetry stays in process")
	default:
		logger.Info("telemetry export disabled", slog.String("environment", cfg.Environment))
	}
}
