package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const telemetryShutdownTimeout = 5 * time.Second

type TelemetryConfig struct {
	CollectorURL   string
	Insecure       bool
	SampleRatio    float64
	MetricInterval time.Duration
}

func (c TelemetryConfig) Enabled() bool {
	return c.CollectorURL != ""
}

// initTelemetry installs global trace, metric and log providers that export
// to the configured collector. Without a collector the noop providers stay in
// place and the returned shutdown does nothing.
func initTelemetry(ctx context.Context, cfg Config, logger *slog.Logger) (func(context.Context), error) {
	if !cfg.Telemetry.Enabled() {
		logger.Info("OpenTelemetry collector URL not set, skipping initialization")
		return func(context.Context) {}, nil
	}

	res, err := telemetryResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	var shutdowns []func(context.Context) error

	shutdown := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, telemetryShutdownTimeout)
		defer cancel()

		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}

		if err := errors.Join(errs...); err != nil {
			logger.Error("failed to shutdown telemetry providers", "error", err)
		}
	}

	tracerProvider, err := newTracerProvider(ctx, cfg.Telemetry, res)
	if err != nil {
		return nil, err
	}
	shutdowns = append(shutdowns, tracerProvider.Shutdown)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	meterProvider, err := newMeterProvider(ctx, cfg.Telemetry, res)
	if err != nil {
		shutdown(ctx)
		return nil, err
	}
	shutdowns = append(shutdowns, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	loggerProvider, err := newLoggerProvider(ctx, cfg.Telemetry, res)
	if err != nil {
		shutdown(ctx)
		return nil, err
	}
	shutdowns = append(shutdowns, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	logger.Info("telemetry enabled",
		"collector", cfg.Telemetry.CollectorURL,
		"sample_ratio", cfg.Telemetry.SampleRatio,
		"metric_interval", cfg.Telemetry.MetricInterval,
	)

	return shutdown, nil
}

// telemetryResource describes this process. OTEL_RESOURCE_ATTRIBUTES can add
// to it but not override the service identity.
func telemetryResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(cfg.Env),
			attribute.String("catalog.language", cfg.Catalog.Language),
			attribute.Int64("feed.session_idle_seconds", int64(cfg.Session.IdleTimeout/time.Second)),
		),
	)
}

func traceSampler(cfg TelemetryConfig) trace.Sampler {
	if cfg.SampleRatio <= 0 {
		return trace.ParentBased(trace.NeverSample())
	}

	return trace.ParentBased(trace.TraceIDRatioBased(cfg.SampleRatio))
}

func newTracerProvider(ctx context.Context, cfg TelemetryConfig, res *resource.Resource) (*trace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorURL)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otel trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithSampler(traceSampler(cfg)),
		trace.WithResource(res),
		trace.WithBatcher(exporter),
	), nil
}

func newMeterProvider(ctx context.Context, cfg TelemetryConfig, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorURL)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otel metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(cfg.MetricInterval))),
	), nil
}

func newLoggerProvider(ctx context.Context, cfg TelemetryConfig, res *resource.Resource) (*log.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorURL)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otel log exporter: %w", err)
	}

	return log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(exporter)),
	), nil
}

// teeHandler sends each record to every handler that accepts its level.
type teeHandler []slog.Handler

func newTeeHandler(handlers ...slog.Handler) teeHandler {
	return teeHandler(handlers)
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}
