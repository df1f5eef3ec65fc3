package observability

import (
	"context"
	"errors"
	"fmt"

	"salesservice/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops a provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

func newShutdown(fns *[]func(context.Context) error) ShutdownFunc {
	return func(ctx context.Context) error {
		var err error
		for _, fn := range *fns {
			err = errors.Join(err, fn(ctx))
		}
		*fns = nil
		return err
	}
}

func newResource(component string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			attribute.String("service.component", component),
		),
	)
}

func authHeaders(cfg *config.Config) map[string]string {
	return map[string]string{"Authorization": cfg.OtelAuthHeader}
}

// SetupPropagation installs the W3C trace context and baggage propagators.
// Kafka headers and HTTP requests both rely on it.
func SetupPropagation() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// SetupLoggingSDK initializes OpenTelemetry logging with the provided configuration.
// Without an endpoint nothing is exported and the global no-op provider stays in place.
func SetupLoggingSDK(ctx context.Context, cfg *config.Config, component string) (ShutdownFunc, error) {
	if !cfg.TelemetryEnabled() {
		return noopShutdown, nil
	}

	var shutdownFuncs []func(context.Context) error
	shutdown := newShutdown(&shutdownFuncs)

	res, err := newResource(component)
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(cfg.OtelEndpoint),
		otlploghttp.WithURLPath(config.LogsPath),
		otlploghttp.WithHeaders(authHeaders(cfg)),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("OTLP log exporter: %w", err)
	}

	logProcessor := sdklog.NewBatchProcessor(logExporter,
		sdklog.WithExportTimeout(config.ExportTimeout),
		sdklog.WithMaxQueueSize(config.MaxQueueSize),
	)
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(logProcessor),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)

	return shutdown, nil
}

// SetupTracingSDK initializes OpenTelemetry tracing with the provided configuration.
// The returned provider is the global one; it is an SDK provider only when exporting.
func SetupTracingSDK(ctx context.Context, cfg *config.Config, component string) (*sdktrace.TracerProvider, ShutdownFunc, error) {
	SetupPropagation()

	if !cfg.TelemetryEnabled() {
		return nil, noopShutdown, nil
	}

	var shutdownFuncs []func(context.Context) error
	shutdown := newShutdown(&shutdownFuncs)

	res, err := newResource(component)
	if err != nil {
		return nil, noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OtelEndpoint),
		otlptracehttp.WithURLPath(config.TracesPath),
		otlptracehttp.WithHeaders(authHeaders(cfg)),
	)
	if err != nil {
		return nil, noopShutdown, fmt.Errorf("OTLP trace exporter: %w", err)
	}

	traceProcessor := sdktrace.NewBatchSpanProcessor(traceExporter,
		sdktrace.WithExportTimeout(config.ExportTimeout),
		sdktrace.WithMaxQueueSize(config.MaxQueueSize),
	)
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(traceProcessor),
	)
	otel.SetTracerProvider(tracerProvider)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)

	return tracerProvider, shutdown, nil
}

// SetupMetricsSDK initializes a periodic OTLP metric exporter.
func SetupMetricsSDK(ctx context.Context, cfg *config.Config, component string) (ShutdownFunc, error) {
	if !cfg.TelemetryEnabled() {
		return noopShutdown, nil
	}

	var shutdownFuncs []func(context.Context) error
	shutdown := newShutdown(&shutdownFuncs)

	res, err := newResource(component)
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OtelEndpoint),
		otlpmetrichttp.WithURLPath(config.MetricsPath),
		otlpmetrichttp.WithHeaders(authHeaders(cfg)),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("OTLP metric exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(config.MetricInterval),
			sdkmetric.WithTimeout(config.ExportTimeout),
		)),
	)
	otel.SetMeterProvider(meterProvider)
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)

	return shutdown, nil
}
