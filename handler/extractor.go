// Package handler implements the terminal stage of the command bus: deriving a key from a
// command, locating the handler registered for it, choosing the operation to call on that
// handler and invoking it.
package handler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
)

// CommandNameExtractor derives a stable key identifying the type of a command.
//
// Implementations must be deterministic and free of side effects.
type CommandNameExtractor interface {
	Extract(cmd any) (string, error)
}

// ClassNameExtractor keys a command by its fully-qualified type name, "<pkgpath>.<Name>".
// A pointer and the value it points to yield the same key.
type ClassNameExtractor struct{}

func (ClassNameExtractor) Extract(cmd any) (string, error) {
	t, err := commandType(cmd)
	if err != nil {
		return "", err
	}

	if t.PkgPath() == "" {
		return t.Name(), nil
	}
	return t.PkgPath() + "." + t.Name(), nil
}

// NamedCommandExtractor keys a command by the name it reports through command.NamedCommand.
type NamedCommandExtractor struct{}

func (NamedCommandExtractor) Extract(cmd any) (string, error) {
	if command.IsNil(cmd) {
		return "", unresolvable(cmd, "command is nil")
	}

	named, ok := cmd.(command.NamedCommand)
	if !ok {
		return "", unresolvable(cmd, "command does not implement NamedCommand")
	}

	name := named.CommandName()
	if name == "" {
		return "", unresolvable(cmd, "command reported an empty name")
	}
	return name, nil
}

// ShortName strips the package path and any type arguments from a command key.
//
//	ShortName("github.com/acme/billing.ChargeCardCommand") == "ChargeCardCommand"
func ShortName(key string) string {
	if i := strings.IndexByte(key, '['); i >= 0 {
		key = key[:i]
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return key[i+1:]
	}
	return key
}

func commandType(cmd any) (reflect.Type, error) {
	if command.IsNil(cmd) {
		return nil, unresolvable(cmd, "command is nil")
	}

	t := reflect.TypeOf(cmd)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Name() == "" {
		return nil, unresolvable(cmd, "command type is unnamed")
	}
	return t, nil
}

func unresolvable(cmd any, reason string) error {
	return errx.New(
		"[handler]: cannot resolve command name: "+reason,
		errx.WithCode(command.CodeUnresolvableCommand),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{
			"command_type": fmt.Sprintf("%T", cmd),
		}),
	)
}
