package middleware

import (
	"context"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/logger"
)

// Recovery turns a panic in the rest of the chain into a CodePanicRecovered error.
type Recovery struct {
	logger logger.Logger
}

func NewRecovery(l logger.Logger) *Recovery {
	return &Recovery{logger: l.Named("cmdbus.recovery")}
}

func (m *Recovery) Execute(ctx context.Context, cmd any, next command.Next) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
			result = nil

			m.logger.
				WithContext(ctx).
				With("command_key", commandKey(cmd)).
				With("stack_trace", errx.AsErrorX(err).Details()["stack_trace"]).
				With("panic_values", errx.AsErrorX(err).Details()["panic_values"]).
				Error("panic recovered in recovery middleware")
		}
	}()

	return next(ctx, cmd)
}
