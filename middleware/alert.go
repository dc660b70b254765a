package middleware

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/alert"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/logger"
	"github.com/rise-and-shine/cmdbus/meta"
)

const alertTimeout = 3 * time.Second

// Alert reports internal errors to an alert.Provider in the background. The error is
// returned to the caller unchanged.
type Alert struct {
	logger   logger.Logger
	provider alert.Provider
}

// NewAlert sends to alert.Global() when provider is nil, looked up on every alert so a
// later alert.SetGlobal takes effect.
func NewAlert(l logger.Logger, provider alert.Provider) *Alert {
	return &Alert{logger: l.Named("cmdbus.alerting"), provider: provider}
}

func (m *Alert) target() alert.Provider {
	if m.provider == nil {
		return alert.Global()
	}
	return m.provider
}

func (m *Alert) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	result, err := next(ctx, cmd)
	if err == nil || errx.GetType(err) != errx.T_Internal {
		return result, err
	}

	e := errx.AsErrorX(err)
	operation := "command: " + commandKey(cmd)

	details := make(map[string]string)
	for k, v := range meta.ExtractMetaFromContext(ctx) {
		details[string(k)] = v
	}
	details["error_trace"] = e.Trace()

	provider := m.target()
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	go func() {
		defer cancel()

		if sendErr := provider.SendError(sendCtx, e.Code(), err.Error(), operation, details); sendErr != nil {
			m.logger.With("alert_send_error", sendErr.Error()).Warn("failed to send error alert")
		}
	}()

	return result, err
}
