package middleware

import (
	"context"

	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/handler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cmdbus"

// Tracing starts a span per command, named after the command's short type name.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing uses tp, or the global otel provider when tp is nil.
func NewTracing(tp trace.TracerProvider) *Tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{tracer: tp.Tracer(tracerName)}
}

func (m *Tracing) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	key := commandKey(cmd)

	ctx, span := m.tracer.Start(ctx, handler.ShortName(key),
		trace.WithAttributes(attribute.String("command.key", key)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	result, err := next(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return result, err
}
