// Package meta carries dispatch metadata through context.
package meta

import "context"

// ContextKey is a type for keys used in context values for metadata.
type ContextKey string

const (
	// TraceID correlates every log entry and span produced while handling one command.
	TraceID ContextKey = "trace_id"

	// CommandID uniquely identifies a single dispatch.
	CommandID ContextKey = "command_id"

	// CommandKey is the key the bus derived for the command being dispatched.
	CommandKey ContextKey = "command_key"

	// ServiceName identifies the name of current running service.
	ServiceName ContextKey = "service_name"

	// ServiceVersion indicates the version of the service.
	ServiceVersion ContextKey = "service_version"

	// IPAddress contains the client's IP address when the command came in over HTTP.
	IPAddress ContextKey = "ip_address"

	// UserAgent contains the user agent string when the command came in over HTTP.
	UserAgent ContextKey = "user_agent"
)

//nolint:gochecknoglobals // fixed key order for extraction
var allKeys = []ContextKey{
	TraceID,
	CommandID,
	CommandKey,
	ServiceName,
	ServiceVersion,
	IPAddress,
	UserAgent,
}

// InjectMetaToContext adds metadata from the provided map to the context.
// Empty values are skipped.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // allow due to finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext returns every non-empty metadata value stored in ctx.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range allKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	return data
}

// Find returns the value stored under key, or an empty string.
func Find(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
