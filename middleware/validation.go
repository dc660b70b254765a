package middleware

import (
	"context"

	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/val"
)

// Validation rejects commands whose `validate` struct tags fail with val.CodeValidationFailed.
// Rejected commands never reach the handler.
type Validation struct{}

func NewValidation() *Validation {
	return &Validation{}
}

func (*Validation) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	if err := val.Validate(cmd); err != nil {
		return nil, err
	}
	return next(ctx, cmd)
}
