package middleware

import (
	"context"
	"time"

	"github.com/rise-and-shine/cmdbus/command"
)

// Timeout bounds the rest of the chain with a context deadline. A zero timeout disables it.
type Timeout struct {
	timeout time.Duration
}

func NewTimeout(timeout time.Duration) *Timeout {
	return &Timeout{timeout: timeout}
}

func (m *Timeout) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	if m.timeout <= 0 {
		return next(ctx, cmd)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return next(ctx, cmd)
}
