// Package middleware provides stock command.Middleware implementations.
//
// Each middleware is independent and can be registered under a key or passed to the bus
// directly. Middleware that keeps per-command state does so in the context, so every
// value here is safe to share between buses and goroutines.
package middleware

import (
	"fmt"
	"runtime"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/handler"
)

// CodePanicRecovered is the errx code of errors produced from recovered panics.
const CodePanicRecovered = "PANIC_RECOVERED"

const stackTraceSize = 4096

// commandKey is the ClassNameExtractor key of cmd, or its dynamic type when cmd has none.
// It is derived from cmd rather than read from the context so nested dispatches get their own.
func commandKey(cmd any) string {
	if k, err := (handler.ClassNameExtractor{}).Extract(cmd); err == nil {
		return k
	}
	return fmt.Sprintf("%T", cmd)
}

// panicError converts a recovered value into an errx error carrying the stack.
func panicError(r any) error {
	stackTrace := make([]byte, stackTraceSize)
	stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]

	return errx.New(
		"panic recovered while handling command",
		errx.WithCode(CodePanicRecovered),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"stack_trace":  string(stackTrace),
			"panic_values": fmt.Sprintf("%v", r),
		}),
	)
}

func errObject(err error) map[string]any {
	e := errx.AsErrorX(err)
	return map[string]any{
		"code":    e.Code(),
		"message": e.Error(),
		"type":    e.Type().String(),
		"trace":   e.Trace(),
		"fields":  e.Fields(),
		"details": e.Details(),
	}
}
