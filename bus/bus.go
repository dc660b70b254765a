// Package bus assembles middleware into an immutable dispatch chain.
//
// A chain is fixed when the CommandBus is constructed: the configured middleware in
// order, followed by the terminal handler middleware. Dispatch walks it synchronously,
// so a built bus can be shared by any number of goroutines.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
)

// Dispatcher is anything that can dispatch a command. *CommandBus implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd any) (any, error)
}

// CommandBus is a built, dispatch-ready chain.
type CommandBus struct {
	middleware []command.Middleware
	chain      command.Next
}

// New builds a bus from middleware followed by terminal. terminal is always last and
// receives a next that must not be called.
func New(terminal command.Middleware, middleware ...command.Middleware) (*CommandBus, error) {
	if command.IsNil(terminal) {
		return nil, command.InvalidConfiguration("terminal middleware", "command.Middleware")
	}

	all := make([]command.Middleware, 0, len(middleware)+1)
	for i, mw := range middleware {
		if command.IsNil(mw) {
			return nil, errx.New(
				"[bus]: middleware is nil",
				errx.WithCode(command.CodeInvalidMiddleware),
				errx.WithType(errx.T_Internal),
				errx.WithDetails(errx.D{"position": fmt.Sprint(i)}),
			)
		}
		all = append(all, mw)
	}
	all = append(all, terminal)

	return &CommandBus{middleware: all, chain: link(all)}, nil
}

// link wraps the list from the inside out so that list[0] runs first.
func link(list []command.Middleware) command.Next {
	next := command.Next(command.Terminal)
	for i := len(list) - 1; i >= 0; i-- {
		mw, n := list[i], next
		next = func(ctx context.Context, cmd any) (any, error) {
			return mw.Execute(ctx, cmd, n)
		}
	}
	return next
}

// Dispatch runs cmd through the chain and returns the handler's result. Errors come back
// as produced unless a middleware transforms them.
func (b *CommandBus) Dispatch(ctx context.Context, cmd any) (any, error) {
	return b.chain(ctx, cmd)
}

// Middleware returns a copy of the chain, terminal middleware included.
func (b *CommandBus) Middleware() []command.Middleware {
	return slices.Clone(b.middleware)
}

// DispatchAs dispatches cmd and asserts the result to R. A nil result yields the zero R.
func DispatchAs[R any](ctx context.Context, d Dispatcher, cmd any) (R, error) {
	var zero R

	res, err := d.Dispatch(ctx, cmd)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}

	r, ok := res.(R)
	if !ok {
		return zero, errx.New(
			"[bus]: handler returned an unexpected result type",
			errx.WithCode(command.CodeUnexpectedResult),
			errx.WithType(errx.T_Internal),
			errx.WithDetails(errx.D{
				"expected": reflect.TypeFor[R]().String(),
				"actual":   fmt.Sprintf("%T", res),
			}),
		)
	}
	return r, nil
}
