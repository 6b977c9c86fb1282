package tracing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type ExporterType string

const (
	ExporterTypeStdout   ExporterType = "stdout"
	ExporterTypeOTLP     ExporterType = "otlp"
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	ExporterTypeNone     ExporterType = "none"
)

// ParseExporterType maps a configuration value to an ExporterType. An empty value means stdout.
func ParseExporterType(value string) (ExporterType, error) {
	switch t := ExporterType(strings.ToLower(strings.TrimSpace(value))); t {
	case "":
		return ExporterTypeStdout, nil
	case ExporterTypeStdout, ExporterTypeOTLP, ExporterTypeOTLPHTTP, ExporterTypeNone:
		return t, nil
	default:
		return "", fmt.Errorf("unknown exporter type %q", value)
	}
}

// SetupOTelSDK bootstraps the OpenTelemetry pipeline for serviceName.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func SetupOTelSDK(ctx context.Context, exporterType ExporterType, serviceName string) (func(context.Context) error, error) {
	fmt.Printf("Setting up OpenTelemetry with exporter: %s\n", exporterType)
	var shutdownFuncs []func(context.Context) error
	var err error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	// Each registered cleanup will be invoked once.
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	// handleErr calls shutdown for cleanup and makes sure that all errors are returned.
	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	otel.SetTextMapPropagator(newPropagator())

	res, err := newResource(ctx, serviceName)
	if err != nil {
		handleErr(err)
		return shutdown, err
	}

	tracerProvider, err := newTracerProvider(ctx, exporterType, res)
	if err != nil {
		handleErr(err)
		return shutdown, err
	}
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	meterProvider, err := newMeterProvider(exporterType, res)
	if err != nil {
		handleErr(err)
		return shutdown, err
	}
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	loggerProvider, err := newLoggerProvider(exporterType, res)
	if err != nil {
		handleErr(err)
		return shutdown, err
	}
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	return shutdown, err
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
}

func newTracerProvider(ctx context.Context, exporterType ExporterType, res *resource.Resource) (*trace.TracerProvider, error) {
	traceExporter, err := newSpanExporter(ctx, exporterType)
	if err != nil {
		return nil, err
	}

	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
	}

	if traceExporter != nil {
		opts = append(opts, trace.WithBatcher(traceExporter,
			trace.WithBatchTimeout(time.Second)))
	}

	return trace.NewTracerProvider(opts...), nil
}

func newSpanExporter(ctx context.Context, exporterType ExporterType) (trace.SpanExporter, error) {
	switch exporterType {
	case ExporterTypeOTLP:
		return otlptracegrpc.New(ctx)
	case ExporterTypeOTLPHTTP:
		return otlptracehttp.New(ctx)
	case ExporterTypeStdout:
		return stdouttrace.New(
			stdouttrace.WithPrettyPrint())
	default:
		return nil, nil
	}
}

// newMeterProvider prints metrics to stdout unless telemetry is switched off. The OTLP
// exporters only carry traces.
func newMeterProvider(exporterType ExporterType, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []metric.Option{metric.WithResource(res)}

	if exporterType != ExporterTypeNone {
		metricExporter, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(metricExporter,
			metric.WithInterval(30*time.Second))))
	}

	return metric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(exporterType ExporterType, res *resource.Resource) (*log.LoggerProvider, error) {
	opts := []log.LoggerProviderOption{log.WithResource(res)}

	if exporterType != ExporterTypeNone {
		logExporter, err := stdoutlog.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, log.WithProcessor(log.NewBatchProcessor(logExporter)))
	}

	return log.NewLoggerProvider(opts...), nil
}
