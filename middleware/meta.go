package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/meta"
	"go.opentelemetry.io/otel/trace"
)

// Meta stores dispatch metadata in the context for the rest of the chain: a trace id,
// a fresh command id, the command key and the service identity.
type Meta struct {
	serviceName    string
	serviceVersion string
}

// NewMeta falls back to meta.SetServiceInfo values for empty arguments.
func NewMeta(serviceName, serviceVersion string) *Meta {
	return &Meta{serviceName: serviceName, serviceVersion: serviceVersion}
}

func (m *Meta) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	metadata := meta.ServiceInfo()
	if m.serviceName != "" {
		metadata[meta.ServiceName] = m.serviceName
	}
	if m.serviceVersion != "" {
		metadata[meta.ServiceVersion] = m.serviceVersion
	}

	if meta.Find(ctx, meta.TraceID) == "" {
		metadata[meta.TraceID] = traceID(ctx)
	}
	metadata[meta.CommandID] = uuid.NewString()
	metadata[meta.CommandKey] = commandKey(cmd)

	ctx = meta.InjectMetaToContext(ctx, metadata)

	return next(ctx, cmd)
}

// traceID prefers the active span's trace id and otherwise generates one.
func traceID(ctx context.Context) string {
	if id := trace.SpanFromContext(ctx).SpanContext().TraceID(); id.IsValid() {
		return id.String()
	}
	return "man-" + uuid.NewString()
}
