package bus

import (
	"context"
	"fmt"

	"github.com/rise-and-shine/cmdbus/command"
)

type refKind int

const (
	refInvalid refKind = iota
	refInstance
	refKey
)

// MiddlewareRef is a middleware as it appears in configuration: either a ready instance or
// the key of a middleware registered in a Registry. Build resolves every reference before
// the chain is assembled.
type MiddlewareRef struct {
	kind refKind
	mw   command.Middleware
	key  string
	raw  any
}

// Use references an already constructed middleware.
func Use(mw command.Middleware) MiddlewareRef {
	return MiddlewareRef{kind: refInstance, mw: mw, raw: mw}
}

// Ref references the middleware registered under key.
func Ref(key string) MiddlewareRef {
	return MiddlewareRef{kind: refKey, key: key, raw: key}
}

// RefOf classifies a loosely typed configuration value. Middleware values become Use
// references and strings become Ref references. Anything else yields a reference that
// fails to resolve with command.CodeInvalidMiddleware.
func RefOf(v any) MiddlewareRef {
	switch x := v.(type) {
	case MiddlewareRef:
		return x
	case command.Middleware:
		return Use(x)
	case func(ctx context.Context, cmd any, next command.Next) (any, error):
		return Use(command.MiddlewareFunc(x))
	case string:
		return Ref(x)
	default:
		return MiddlewareRef{kind: refInvalid, raw: v}
	}
}

// IsKey reports whether r names a registered middleware.
func (r MiddlewareRef) IsKey() bool {
	return r.kind == refKey
}

// Key returns the registry key of a Ref reference.
func (r MiddlewareRef) Key() string {
	return r.key
}

func (r MiddlewareRef) String() string {
	switch r.kind {
	case refInstance:
		return fmt.Sprintf("instance(%T)", r.mw)
	case refKey:
		return fmt.Sprintf("key(%q)", r.key)
	case refInvalid:
		return fmt.Sprintf("invalid(%T)", r.raw)
	default:
		return fmt.Sprintf("invalid(%T)", r.raw)
	}
}
