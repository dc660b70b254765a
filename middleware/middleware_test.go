package middleware_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rise-and-shine/cmdbus/alert"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/logger"
	"github.com/rise-and-shine/cmdbus/meta"
	"github.com/rise-and-shine/cmdbus/middleware"
	"github.com/rise-and-shine/cmdbus/val"
)

const pkgPath = "github.com/rise-and-shine/cmdbus/middleware_test"

type ChargeCardCommand struct {
	CustomerID string `json:"customer_id" validate:"required"`
	CardNumber string `json:"card_number" mask:"true"`
}

func observed() (logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

func returning(result any, err error) command.Next {
	return func(context.Context, any) (any, error) {
		return result, err
	}
}

func internalErr(code string) error {
	return errx.New("boom", errx.WithCode(code), errx.WithType(errx.T_Internal))
}

func validationErr() error {
	return errx.New("bad input", errx.WithCode("BAD_INPUT"), errx.WithType(errx.T_Validation))
}

func TestRecovery(t *testing.T) {
	l, logs := observed()
	mw := middleware.NewRecovery(l)

	res, err := mw.Execute(t.Context(), ChargeCardCommand{}, func(context.Context, any) (any, error) {
		panic("kaboom")
	})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errx.IsCodeIn(err, middleware.CodePanicRecovered))
	assert.Equal(t, "kaboom", errx.AsErrorX(err).Details()["panic_values"])

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, pkgPath+".ChargeCardCommand", logs.All()[0].ContextMap()["command_key"])
}

func TestRecovery_PassThrough(t *testing.T) {
	l, logs := observed()

	res, err := middleware.NewRecovery(l).Execute(t.Context(), ChargeCardCommand{}, returning("ok", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Zero(t, logs.Len())
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{name: "deadline set", timeout: time.Minute, wantDeadline: true},
		{name: "zero disables", timeout: 0, wantDeadline: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hasDeadline bool
			_, err := middleware.NewTimeout(tc.timeout).Execute(t.Context(), ChargeCardCommand{},
				func(ctx context.Context, _ any) (any, error) {
					_, hasDeadline = ctx.Deadline()
					return nil, nil
				})
			require.NoError(t, err)
			assert.Equal(t, tc.wantDeadline, hasDeadline)
		})
	}
}

func TestTimeout_Expires(t *testing.T) {
	_, err := middleware.NewTimeout(10*time.Millisecond).Execute(t.Context(), ChargeCardCommand{},
		func(ctx context.Context, _ any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	mw := middleware.NewTracing(tp)

	_, err := mw.Execute(t.Context(), &ChargeCardCommand{}, returning("ok", nil))
	require.NoError(t, err)

	failure := internalErr("DB_DOWN")
	_, err = mw.Execute(t.Context(), ChargeCardCommand{}, returning(nil, failure))
	require.ErrorIs(t, err, failure)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "ChargeCardCommand", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("command.key", pkgPath+".ChargeCardCommand"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestMeta(t *testing.T) {
	var got map[meta.ContextKey]string
	capture := func(ctx context.Context, _ any) (any, error) {
		got = meta.ExtractMetaFromContext(ctx)
		return nil, nil
	}

	_, err := middleware.NewMeta("billing", "v1").Execute(t.Context(), ChargeCardCommand{}, capture)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got[meta.TraceID], "man-"))
	assert.NotEmpty(t, got[meta.CommandID])
	assert.Equal(t, pkgPath+".ChargeCardCommand", got[meta.CommandKey])
	assert.Equal(t, "billing", got[meta.ServiceName])
	assert.Equal(t, "v1", got[meta.ServiceVersion])
}

func TestMeta_KeepsTraceIDForNestedCommands(t *testing.T) {
	ctx := meta.InjectMetaToContext(t.Context(), map[meta.ContextKey]string{
		meta.TraceID:    "outer-trace",
		meta.CommandID:  "outer-id",
		meta.CommandKey: "outer.Key",
	})

	var got map[meta.ContextKey]string
	_, err := middleware.NewMeta("", "").Execute(ctx, ChargeCardCommand{}, func(ctx context.Context, _ any) (any, error) {
		got = meta.ExtractMetaFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "outer-trace", got[meta.TraceID])
	assert.NotEqual(t, "outer-id", got[meta.CommandID])
	assert.Equal(t, pkgPath+".ChargeCardCommand", got[meta.CommandKey])
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		next      command.Next
		wantLevel zapcore.Level
		wantCode  string
	}{
		{name: "success", next: returning("ok", nil), wantLevel: zapcore.InfoLevel},
		{name: "internal error", next: returning(nil, internalErr("DB_DOWN")), wantLevel: zapcore.ErrorLevel, wantCode: "DB_DOWN"},
		{name: "validation error", next: returning(nil, validationErr()), wantLevel: zapcore.WarnLevel, wantCode: "BAD_INPUT"},
		{
			name: "panic",
			next: func(context.Context, any) (any, error) {
				panic("kaboom")
			},
			wantLevel: zapcore.ErrorLevel,
			wantCode:  middleware.CodePanicRecovered,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, logs := observed()
			cmd := ChargeCardCommand{CustomerID: "c-1", CardNumber: "4111111111111111"}

			_, err := middleware.NewLogger(l).Execute(t.Context(), cmd, tc.next)
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errx.IsCodeIn(err, tc.wantCode))
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tc.wantLevel, entry.Level)
			assert.Equal(t, "cmdbus.logger", entry.LoggerName)
			assert.Equal(t, pkgPath+".ChargeCardCommand", entry.ContextMap()["command_key"])

			fields, ok := entry.ContextMap()["command"].(*orderedmap.OrderedMap[string, any])
			require.True(t, ok)
			card, _ := fields.Get("card_number")
			assert.Equal(t, "***masked-string***", card)
		})
	}
}

type recordingProvider struct {
	sent chan string
}

func (p *recordingProvider) SendError(_ context.Context, errCode, _, operation string, _ map[string]string) error {
	p.sent <- errCode + " " + operation
	return nil
}

func TestAlert(t *testing.T) {
	l, _ := observed()
	provider := &recordingProvider{sent: make(chan string, 1)}
	mw := middleware.NewAlert(l, provider)

	failure := internalErr("DB_DOWN")
	_, err := mw.Execute(t.Context(), ChargeCardCommand{}, returning(nil, failure))
	require.ErrorIs(t, err, failure)

	select {
	case got := <-provider.sent:
		assert.Equal(t, "DB_DOWN command: "+pkgPath+".ChargeCardCommand", got)
	case <-time.After(time.Second):
		t.Fatal("alert was not sent")
	}
}

func TestAlert_SkipsNonInternal(t *testing.T) {
	l, _ := observed()
	provider := &recordingProvider{sent: make(chan string, 1)}
	mw := middleware.NewAlert(l, provider)

	_, err := mw.Execute(t.Context(), ChargeCardCommand{}, returning(nil, validationErr()))
	require.Error(t, err)

	res, err := mw.Execute(t.Context(), ChargeCardCommand{}, returning("ok", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", res)

	assert.Never(t, func() bool { return len(provider.sent) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestAlert_GlobalProviderSetAfterConstruction(t *testing.T) {
	l, _ := observed()
	mw := middleware.NewAlert(l, nil)

	provider := &recordingProvider{sent: make(chan string, 1)}
	require.NoError(t, alert.SetGlobalProvider(provider))

	_, err := mw.Execute(t.Context(), ChargeCardCommand{}, returning(nil, internalErr("DB_DOWN")))
	require.Error(t, err)

	select {
	case got := <-provider.sent:
		assert.Equal(t, "DB_DOWN command: "+pkgPath+".ChargeCardCommand", got)
	case <-time.After(time.Second):
		t.Fatal("alert was not sent to the global provider")
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		attempts  uint
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{name: "succeeds after transient failures", attempts: 3, failures: 2, err: internalErr("DB_DOWN"), wantCalls: 3},
		{name: "gives up after attempts", attempts: 2, failures: 5, err: internalErr("DB_DOWN"), wantCalls: 2, wantErr: true},
		{name: "validation errors are final", attempts: 3, failures: 5, err: validationErr(), wantCalls: 1, wantErr: true},
		{
			name: "handler not found is final", attempts: 3, failures: 5,
			err:       errx.New("x", errx.WithCode(command.CodeHandlerNotFound), errx.WithType(errx.T_NotFound)),
			wantCalls: 1, wantErr: true,
		},
		{name: "zero attempts means one call", attempts: 0, failures: 5, err: internalErr("DB_DOWN"), wantCalls: 1, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, _ := observed()
			mw := middleware.NewRetry(l, tc.attempts, time.Millisecond)

			calls := 0
			res, err := mw.Execute(t.Context(), ChargeCardCommand{}, func(context.Context, any) (any, error) {
				calls++
				if calls <= tc.failures {
					return nil, tc.err
				}
				return "charged", nil
			})

			assert.Equal(t, tc.wantCalls, calls)
			if tc.wantErr {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "charged", res)
		})
	}
}

func TestRetry_CustomPredicate(t *testing.T) {
	l, _ := observed()
	plain := errors.New("plain")
	mw := middleware.NewRetry(l, 3, time.Millisecond, middleware.WithRetryIf(func(err error) bool {
		return errors.Is(err, plain)
	}))

	calls := 0
	_, err := mw.Execute(t.Context(), ChargeCardCommand{}, func(context.Context, any) (any, error) {
		calls++
		return nil, plain
	})
	require.ErrorIs(t, err, plain)
	assert.Equal(t, 3, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, middleware.IsRetryable(internalErr("DB_DOWN")))
	assert.True(t, middleware.IsRetryable(errx.New("slow down", errx.WithType(errx.T_Throttling))))
	assert.False(t, middleware.IsRetryable(validationErr()))
	assert.False(t, middleware.IsRetryable(internalErr(command.CodeOperationNotFound)))
	assert.False(t, middleware.IsRetryable(internalErr(middleware.CodePanicRecovered)))
}

func TestValidation(t *testing.T) {
	mw := middleware.NewValidation()

	called := false
	next := func(context.Context, any) (any, error) {
		called = true
		return "ok", nil
	}

	_, err := mw.Execute(t.Context(), ChargeCardCommand{}, next)
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, val.CodeValidationFailed))
	assert.False(t, called)

	res, err := mw.Execute(t.Context(), ChargeCardCommand{CustomerID: "c-1"}, next)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.True(t, called)
}

func TestMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	mw := middleware.NewMetrics(reg)

	_, _ = mw.Execute(t.Context(), ChargeCardCommand{}, returning("ok", nil))
	_, _ = mw.Execute(t.Context(), ChargeCardCommand{}, returning(nil, internalErr("DB_DOWN")))

	name := "cmdbus." + pkgPath + ".ChargeCardCommand"

	timer, ok := reg.Get(name + ".duration").(metrics.Timer)
	require.True(t, ok)
	assert.EqualValues(t, 2, timer.Count())

	counter, ok := reg.Get(name + ".errors").(metrics.Counter)
	require.True(t, ok)
	assert.EqualValues(t, 1, counter.Count())
}

func TestMetrics_ConcurrentUse(t *testing.T) {
	reg := metrics.NewRegistry()
	mw := middleware.NewMetrics(reg)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mw.Execute(t.Context(), ChargeCardCommand{}, returning("ok", nil))
		}()
	}
	wg.Wait()

	timer, ok := reg.Get("cmdbus." + pkgPath + ".ChargeCardCommand.duration").(metrics.Timer)
	require.True(t, ok)
	assert.EqualValues(t, 32, timer.Count())
}
