// Package tracing builds the OpenTelemetry tracer provider consumed by the tracing
// middleware, exporting command spans over OTLP/gRPC.
package tracing

import (
	"context"
	"net"
	"slices"

	"github.com/code19m/errx"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.23.1"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rise-and-shine/cmdbus/meta"
	"github.com/rise-and-shine/cmdbus/val"
)

// CodeExporterHostRequired is returned when tracing is enabled without an exporter host.
const CodeExporterHostRequired = "EXPORTER_HOST_REQUIRED"

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(ctx context.Context) error

// NewProvider returns a tracer provider for cfg. When cfg.Disable is set the provider is
// a no-op and the shutdown function does nothing.
//
// The exporter connects lazily; an unreachable collector does not fail NewProvider.
func NewProvider(ctx context.Context, cfg Config) (trace.TracerProvider, ShutdownFunc, error) {
	if cfg.Disable {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	if err := val.Validate(cfg); err != nil {
		return nil, nil, err
	}
	if cfg.ExporterHost == "" {
		return nil, nil, errx.New(
			"[tracing]: exporter host is required when tracing is enabled",
			errx.WithCode(CodeExporterHostRequired),
			errx.WithType(errx.T_Validation),
		)
	}

	client := otlptracegrpc.NewClient(
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(net.JoinHostPort(cfg.ExporterHost, cast.ToString(cfg.ExporterPort))),
		otlptracegrpc.WithReconnectionPeriod(reconnectionPeriod),
		otlptracegrpc.WithTimeout(clientTimeout),
	)

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, nil, errx.Wrap(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(
			exporter,
			sdktrace.WithMaxQueueSize(maxQueueSize),
			sdktrace.WithBatchTimeout(batchTimeout),
			sdktrace.WithMaxExportBatchSize(maxExportBatchSize),
		)),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, resourceAttributes(cfg)...)),
	)

	return tp, shutdownFunc(tp), nil
}

// SetGlobal installs the provider built from cfg as the otel global, together with the
// W3C trace-context and baggage propagators. Tracing middleware built without an explicit
// provider picks it up.
func SetGlobal(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	tp, shutdown, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
	otel.SetTracerProvider(tp)

	return shutdown, nil
}

func resourceAttributes(cfg Config) []attribute.KeyValue {
	keys := lo.Keys(cfg.Tags)
	slices.Sort(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys)+2) //nolint:mnd // service name and version
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, cfg.Tags[k]))
	}

	info := meta.ServiceInfo()
	if name := info[meta.ServiceName]; name != "" {
		attrs = append(attrs, semconv.ServiceNameKey.String(name))
	}
	if version := info[meta.ServiceVersion]; version != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(version))
	}
	return attrs
}

func shutdownFunc(tp *sdktrace.TracerProvider) ShutdownFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := tp.ForceFlush(ctx); err != nil {
			return errx.Wrap(err)
		}
		return errx.Wrap(tp.Shutdown(ctx))
	}
}
