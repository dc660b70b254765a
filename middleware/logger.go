package middleware

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/logger"
	"github.com/rise-and-shine/cmdbus/mask"
)

// Logger writes one entry per dispatched command with its key, duration and masked fields.
// Internal errors are logged at error level and all other errors at warn level.
// Panics further down the chain are recovered so they are logged too.
type Logger struct {
	logger logger.Logger
}

func NewLogger(l logger.Logger) *Logger {
	return &Logger{logger: l.Named("cmdbus.logger")}
}

func (m *Logger) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	start := time.Now()

	result, err := executeWithRecovery(ctx, cmd, next)

	log := m.logger.
		WithContext(ctx).
		With(
			"command_key", commandKey(cmd),
			"execution_time", time.Since(start).String(),
			"command", mask.Fields(cmd),
		)

	const msg = "command dispatched"
	switch {
	case err == nil:
		log.Info(msg)
	case errx.GetType(err) == errx.T_Internal:
		log.With("error", errObject(err)).Error(msg)
	default:
		log.With("error", errObject(err)).Warn(msg)
	}

	return result, err
}

func executeWithRecovery(ctx context.Context, cmd any, next command.Next) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, panicError(r)
		}
	}()

	return next(ctx, cmd)
}
