package handler

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/samber/lo"
)

// Locator maps a command key to the handler responsible for it.
//
// The bus queries the locator on every dispatch and never caches the result.
type Locator interface {
	GetHandlerForCommand(key string) (any, error)
}

// InMemoryLocator keeps handlers in a map populated during configuration.
//
// Registering the same key twice fails with command.CodeDuplicateHandler. The locator
// seals itself on the first lookup; registrations after that fail with
// command.CodeLocatorSealed.
type InMemoryLocator struct {
	mu       sync.RWMutex
	handlers map[string]any
	sealed   atomic.Bool
}

// NewInMemoryLocator returns an empty locator.
func NewInMemoryLocator() *InMemoryLocator {
	return &InMemoryLocator{handlers: make(map[string]any)}
}

// AddHandler registers handler under key.
func (l *InMemoryLocator) AddHandler(key string, handler any) error {
	if key == "" {
		return errx.New(
			"[handler.locator]: handler key is required",
			errx.WithCode(command.CodeInvalidConfiguration),
			errx.WithType(errx.T_Validation),
		)
	}
	if command.IsNil(handler) {
		return errx.New(
			"[handler.locator]: handler is nil",
			errx.WithCode(command.CodeInvalidConfiguration),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"command_key": key}),
		)
	}

	if l.sealed.Load() {
		return errx.New(
			"[handler.locator]: handlers cannot be registered after the first dispatch",
			errx.WithCode(command.CodeLocatorSealed),
			errx.WithType(errx.T_Internal),
			errx.WithDetails(errx.D{"command_key": key}),
		)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.handlers[key]; exists {
		return errx.New(
			"[handler.locator]: handler already registered",
			errx.WithCode(command.CodeDuplicateHandler),
			errx.WithType(errx.T_Conflict),
			errx.WithDetails(errx.D{"command_key": key}),
		)
	}

	l.handlers[key] = handler
	return nil
}

// AddHandlerFor registers handler under the key ClassNameExtractor derives from cmd.
// cmd is only used for its type; a zero value is enough.
func (l *InMemoryLocator) AddHandlerFor(cmd, handler any) error {
	key, err := ClassNameExtractor{}.Extract(cmd)
	if err != nil {
		return errx.Wrap(err)
	}
	return l.AddHandler(key, handler)
}

// AddHandlers registers every entry of handlers in key order and stops at the first error.
func (l *InMemoryLocator) AddHandlers(handlers map[string]any) error {
	keys := lo.Keys(handlers)
	slices.Sort(keys)

	for _, key := range keys {
		if err := l.AddHandler(key, handlers[key]); err != nil {
			return err
		}
	}
	return nil
}

// GetHandlerForCommand returns the handler registered under key.
func (l *InMemoryLocator) GetHandlerForCommand(key string) (any, error) {
	l.sealed.Store(true)

	l.mu.RLock()
	handler, ok := l.handlers[key]
	l.mu.RUnlock()

	if !ok {
		return nil, handlerNotFound(key)
	}
	return handler, nil
}

// Keys returns the registered keys in sorted order.
func (l *InMemoryLocator) Keys() []string {
	l.mu.RLock()
	keys := lo.Keys(l.handlers)
	l.mu.RUnlock()

	slices.Sort(keys)
	return keys
}

// CallableLocator adapts a lookup function to Locator. A nil handler with a nil
// error is reported as command.CodeHandlerNotFound.
type CallableLocator func(key string) (any, error)

func (f CallableLocator) GetHandlerForCommand(key string) (any, error) {
	handler, err := f(key)
	if err != nil {
		return nil, err
	}
	if command.IsNil(handler) {
		return nil, handlerNotFound(key)
	}
	return handler, nil
}

func handlerNotFound(key string) error {
	return errx.New(
		"[handler.locator]: no handler registered for command",
		errx.WithCode(command.CodeHandlerNotFound),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{"command_key": key}),
	)
}
