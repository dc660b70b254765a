package meta_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/cmdbus/meta"
)

func TestInjectMetaToContext(t *testing.T) {
	tests := []struct {
		name       string
		initialCtx context.Context
		data       map[meta.ContextKey]string
		key        meta.ContextKey
		want       string
	}{
		{
			name:       "inject single value",
			initialCtx: t.Context(),
			data:       map[meta.ContextKey]string{meta.TraceID: "abc-123"},
			key:        meta.TraceID,
			want:       "abc-123",
		},
		{
			name:       "inject multiple values",
			initialCtx: t.Context(),
			data: map[meta.ContextKey]string{
				meta.TraceID:    "trace-123",
				meta.CommandKey: "billing.ChargeCardCommand",
				meta.CommandID:  "cmd-1",
			},
			key:  meta.CommandKey,
			want: "billing.ChargeCardCommand",
		},
		{
			name:       "skip empty values",
			initialCtx: t.Context(),
			data:       map[meta.ContextKey]string{meta.TraceID: "trace-123", meta.CommandID: ""},
			key:        meta.CommandID,
			want:       "",
		},
		{
			name:       "overwrite existing value",
			initialCtx: context.WithValue(t.Context(), meta.TraceID, "old"),
			data:       map[meta.ContextKey]string{meta.TraceID: "new"},
			key:        meta.TraceID,
			want:       "new",
		},
		{
			name:       "empty map",
			initialCtx: t.Context(),
			data:       map[meta.ContextKey]string{},
			key:        meta.TraceID,
			want:       "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := meta.InjectMetaToContext(tc.initialCtx, tc.data)
			assert.Equal(t, tc.want, meta.Find(ctx, tc.key))
		})
	}
}

func TestExtractMetaFromContext(t *testing.T) {
	ctx := meta.InjectMetaToContext(t.Context(), map[meta.ContextKey]string{
		meta.TraceID:     "trace-1",
		meta.CommandKey:  "users.RegisterUserCommand",
		meta.ServiceName: "",
	})
	ctx = context.WithValue(ctx, meta.IPAddress, 42) // non-string values are ignored

	got := meta.ExtractMetaFromContext(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "trace-1", got[meta.TraceID])
	assert.Equal(t, "users.RegisterUserCommand", got[meta.CommandKey])
}

func TestExtractMetaFromContext_Empty(t *testing.T) {
	assert.Empty(t, meta.ExtractMetaFromContext(t.Context()))
}

func TestSetServiceInfo(t *testing.T) {
	meta.SetServiceInfo("billing", "v1.2.3")
	meta.SetServiceInfo("ignored", "v0")

	info := meta.ServiceInfo()
	assert.Equal(t, "billing", info[meta.ServiceName])
	assert.Equal(t, "v1.2.3", info[meta.ServiceVersion])
}
