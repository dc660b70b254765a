package handler

import (
	"context"
	"fmt"
	"reflect"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
)

//nolint:gochecknoglobals // reflected interface types are static
var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Invokable is a handler operation bound to a command, ready to be called.
//
// The operation accepts the command, optionally preceded by a context.Context, and
// returns nothing, an error, a result, or a result and an error.
type Invokable struct {
	name    string
	fn      reflect.Value
	arg     reflect.Value
	withCtx bool
	result  bool
	err     bool
}

// GetInvokableForHandler finds the operation inflector selects on handler for cmd.
// Missing operations and incompatible signatures fail with command.CodeOperationNotFound.
func GetInvokableForHandler(inflector MethodNameInflector, key string, handler, cmd any) (Invokable, error) {
	name := inflector.Inflect(key, cmd)
	if command.IsNil(handler) {
		return Invokable{}, operationNotFound(key, name, handler, "handler is nil")
	}

	hv := reflect.ValueOf(handler)
	fn := hv.MethodByName(name)
	if !fn.IsValid() && name == InvokeMethod && hv.Kind() == reflect.Func {
		fn = hv
	}
	if !fn.IsValid() {
		return Invokable{}, operationNotFound(key, name, handler, "handler has no such method")
	}

	inv := Invokable{name: name, fn: fn}
	if reason := inv.bind(fn.Type(), cmd); reason != "" {
		return Invokable{}, operationNotFound(key, name, handler, reason)
	}
	return inv, nil
}

// Name returns the name of the bound operation.
func (i Invokable) Name() string {
	return i.name
}

// Call invokes the operation. Errors returned by the handler come back unmodified.
func (i Invokable) Call(ctx context.Context) (any, error) {
	args := make([]reflect.Value, 0, 2) //nolint:mnd // context and command
	if i.withCtx {
		args = append(args, reflect.ValueOf(&ctx).Elem())
	}
	args = append(args, i.arg)

	out := i.fn.Call(args)

	var (
		result any
		err    error
	)
	if i.result {
		result = out[0].Interface()
	}
	if i.err {
		if e, ok := out[len(out)-1].Interface().(error); ok {
			err = e
		}
	}
	return result, err
}

// bind checks the operation signature against cmd and records how to call it.
// It returns a non-empty reason when the signature is unusable.
func (i *Invokable) bind(ft reflect.Type, cmd any) string {
	if ft.IsVariadic() {
		return "variadic operations are not supported"
	}

	var cmdParam reflect.Type
	switch ft.NumIn() {
	case 1:
		cmdParam = ft.In(0)
	case 2: //nolint:mnd // context and command
		if ft.In(0) != contextType {
			return "first parameter of a two-parameter operation must be context.Context"
		}
		i.withCtx = true
		cmdParam = ft.In(1)
	default:
		return fmt.Sprintf("operation takes %d parameters, expected the command and an optional context", ft.NumIn())
	}

	arg, ok := argumentFor(cmd, cmdParam)
	if !ok {
		return fmt.Sprintf("command of type %T is not assignable to parameter of type %s", cmd, cmdParam)
	}
	i.arg = arg

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			i.err = true
		} else {
			i.result = true
		}
	case 2: //nolint:mnd // result and error
		if ft.Out(1) != errorType {
			return "second result of an operation must be error"
		}
		i.result = true
		i.err = true
	default:
		return fmt.Sprintf("operation returns %d values, expected at most a result and an error", ft.NumOut())
	}
	return ""
}

// argumentFor adapts cmd to param, dereferencing or taking the address of a copy when
// the command and parameter differ only by one level of indirection.
func argumentFor(cmd any, param reflect.Type) (reflect.Value, bool) {
	v := reflect.ValueOf(cmd)
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	t := v.Type()

	switch {
	case t.AssignableTo(param):
		return v, true
	case t.Kind() == reflect.Pointer && t.Elem().AssignableTo(param):
		return v.Elem(), true
	case param.Kind() == reflect.Pointer && t.AssignableTo(param.Elem()):
		p := reflect.New(param.Elem())
		p.Elem().Set(v)
		return p, true
	default:
		return reflect.Value{}, false
	}
}

func operationNotFound(key, name string, handler any, reason string) error {
	return errx.New(
		"[handler]: handler cannot receive command: "+reason,
		errx.WithCode(command.CodeOperationNotFound),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"command_key":  key,
			"operation":    name,
			"handler_type": fmt.Sprintf("%T", handler),
		}),
	)
}
