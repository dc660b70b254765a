package handler

import (
	"context"

	"github.com/rise-and-shine/cmdbus/command"
)

// CommandHandlerMiddleware is the last link of every chain. It resolves the command key,
// looks up the handler, selects the operation and returns the handler's result.
// It never calls next.
type CommandHandlerMiddleware struct {
	extractor CommandNameExtractor
	locator   Locator
	inflector MethodNameInflector
}

// NewCommandHandlerMiddleware validates the three collaborators and fails with
// command.CodeInvalidConfiguration, naming the first one that is missing.
func NewCommandHandlerMiddleware(
	extractor CommandNameExtractor,
	locator Locator,
	inflector MethodNameInflector,
) (*CommandHandlerMiddleware, error) {
	if command.IsNil(extractor) {
		return nil, command.InvalidConfiguration("command name extractor", "handler.CommandNameExtractor")
	}
	if command.IsNil(locator) {
		return nil, command.InvalidConfiguration("locator", "handler.Locator")
	}
	if command.IsNil(inflector) {
		return nil, command.InvalidConfiguration("inflector", "handler.MethodNameInflector")
	}

	return &CommandHandlerMiddleware{
		extractor: extractor,
		locator:   locator,
		inflector: inflector,
	}, nil
}

func (m *CommandHandlerMiddleware) Execute(ctx context.Context, cmd any, _ command.Next) (any, error) {
	key, err := m.extractor.Extract(cmd)
	if err != nil {
		return nil, err
	}

	h, err := m.locator.GetHandlerForCommand(key)
	if err != nil {
		return nil, err
	}

	inv, err := GetInvokableForHandler(m.inflector, key, h, cmd)
	if err != nil {
		return nil, err
	}

	return inv.Call(ctx)
}
