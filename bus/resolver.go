package bus

import (
	"context"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
)

// ResolveMiddleware turns ref into a concrete middleware.
//
// An instance reference is returned unchanged. A key reference is looked up in services
// and accepted when the registered value is a command.Middleware or a plain middleware
// function. Everything else fails with command.CodeInvalidMiddleware and reports ref.
func ResolveMiddleware(services Lookuper, ref MiddlewareRef) (command.Middleware, error) {
	switch ref.kind {
	case refInstance:
		if command.IsNil(ref.mw) {
			return nil, invalidMiddleware(ref, "middleware instance is nil")
		}
		return ref.mw, nil

	case refKey:
		if command.IsNil(services) {
			return nil, invalidMiddleware(ref, "no registry to look the key up in")
		}
		v, ok := services.Lookup(ref.key)
		if !ok {
			return nil, invalidMiddleware(ref, "no service registered under key")
		}
		if mw, ok := asMiddleware(v); ok {
			return mw, nil
		}
		return nil, invalidMiddleware(ref, "registered service is not a middleware")

	case refInvalid:
		return nil, invalidMiddleware(ref, "value is neither a middleware nor a key")
	default:
		return nil, invalidMiddleware(ref, "value is neither a middleware nor a key")
	}
}

func asMiddleware(v any) (command.Middleware, bool) {
	if command.IsNil(v) {
		return nil, false
	}
	switch x := v.(type) {
	case command.Middleware:
		return x, true
	case func(ctx context.Context, cmd any, next command.Next) (any, error):
		return command.MiddlewareFunc(x), true
	default:
		return nil, false
	}
}

func invalidMiddleware(ref MiddlewareRef, reason string) error {
	return errx.New(
		"[bus]: cannot resolve middleware: "+reason,
		errx.WithCode(command.CodeInvalidMiddleware),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{"reference": ref.String()}),
	)
}
