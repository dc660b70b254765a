package middleware

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/logger"
)

const maxJitter = 10 * time.Millisecond

// Retry calls the rest of the chain again when it fails with a retryable error, with a
// jittered backoff between attempts. Only the last error is returned.
type Retry struct {
	logger    logger.Logger
	attempts  uint
	delay     time.Duration
	retryable func(error) bool
}

// RetryOption customises a Retry.
type RetryOption func(*Retry)

// WithRetryIf replaces the default retryable predicate.
func WithRetryIf(fn func(error) bool) RetryOption {
	return func(r *Retry) {
		r.retryable = fn
	}
}

// NewRetry makes up to attempts calls. Attempts below one are treated as one.
func NewRetry(l logger.Logger, attempts uint, delay time.Duration, opts ...RetryOption) *Retry {
	r := &Retry{
		logger:    l.Named("cmdbus.retry"),
		attempts:  max(attempts, 1),
		delay:     delay,
		retryable: IsRetryable,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (m *Retry) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	log := m.logger.WithContext(ctx).With("command_key", commandKey(cmd))

	return retry.DoWithData(
		func() (any, error) {
			return next(ctx, cmd)
		},
		retry.Attempts(m.attempts),
		retry.Delay(m.delay),
		retry.MaxJitter(maxJitter),
		retry.LastErrorOnly(true),
		retry.RetryIf(m.retryable),
		retry.OnRetry(func(n uint, err error) {
			log.
				With("error", errObject(err)).
				With("attempt", n+1).
				With("max_attempts", m.attempts).
				Warn("retrying command")
		}),
		retry.Context(ctx),
	)
}

// IsRetryable reports whether err may succeed on a later attempt: internal and throttling
// errors are retried, except those caused by bus configuration or a panic.
func IsRetryable(err error) bool {
	if errx.IsCodeIn(err,
		command.CodeInvalidConfiguration,
		command.CodeInvalidMiddleware,
		command.CodeHandlerNotFound,
		command.CodeOperationNotFound,
		command.CodeUnresolvableCommand,
		CodePanicRecovered,
	) {
		return false
	}

	switch errx.GetType(err) { //nolint:exhaustive // every other type is final
	case errx.T_Internal, errx.T_Throttling:
		return true
	default:
		return false
	}
}
