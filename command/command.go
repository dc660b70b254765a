// Package command defines the contracts shared by the command bus, its middleware and
// the handler dispatch stage.
//
// A command is any non-nil value representing an intended action. The bus is opaque to its
// structure except for the key derived from its type. Middleware wraps the rest of the chain
// and decides whether, and how many times, the continuation is called.
package command

import (
	"context"
	"reflect"
)

// Next is the continuation to the rest of the middleware chain.
type Next func(ctx context.Context, cmd any) (any, error)

// Middleware is a single link of the dispatch chain.
//
// Execute may inspect or replace the command, call next zero or more times and transform
// the result or error it returns. Middleware shared across buses must be stateless or
// internally synchronized.
type Middleware interface {
	Execute(ctx context.Context, cmd any, next Next) (any, error)
}

// MiddlewareFunc adapts an ordinary function to the Middleware interface.
type MiddlewareFunc func(ctx context.Context, cmd any, next Next) (any, error)

// Execute calls f(ctx, cmd, next).
func (f MiddlewareFunc) Execute(ctx context.Context, cmd any, next Next) (any, error) {
	return f(ctx, cmd, next)
}

// NamedCommand is implemented by commands that carry their own stable name.
type NamedCommand interface {
	CommandName() string
}

// Terminal is a Next that ends the chain. It is handed to the last middleware, which
// must never call it.
func Terminal(_ context.Context, _ any) (any, error) {
	return nil, errChainExhausted
}

// IsNil reports whether v is nil or an interface holding a nil pointer, map, slice,
// channel or func.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
