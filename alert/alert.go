// Package alert reports failed commands to an out-of-band channel.
//
// Three providers are built in: a no-op one, one that writes alerts to the logger and one
// that forwards them to a Sentinel service over gRPC. Hosts plug their own notifier in
// through the Provider interface.
package alert

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/logger"
)

const (
	CodeInvalidProvider  = "INVALID_ALERT_PROVIDER"
	CodeGlobalAlreadySet = "ALERT_GLOBAL_ALREADY_SET"
)

const (
	ProviderNoop     = "noop"
	ProviderLog      = "log"
	ProviderSentinel = "sentinel"
)

// Config selects the global alert provider.
type Config struct {
	Provider string `yaml:"provider" validate:"oneof=noop log sentinel" default:"noop"`

	// Sentinel is only read when Provider is "sentinel".
	Sentinel SentinelConfig `yaml:"sentinel"`
}

// Provider sends error alerts.
type Provider interface {
	// SendError reports an error with its code, message, the failing operation and free-form details.
	SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error
}

// NewProvider builds the provider named in cfg.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderNoop, "":
		return noopProvider{}, nil
	case ProviderLog:
		return NewLogProvider(logger.Named("cmdbus.alert")), nil
	case ProviderSentinel:
		return NewSentinelProvider(cfg.Sentinel)
	default:
		return nil, errx.New(
			"[alert]: unknown provider",
			errx.WithCode(CodeInvalidProvider),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"provider": cfg.Provider}),
		)
	}
}

type noopProvider struct{}

func (noopProvider) SendError(context.Context, string, string, string, map[string]string) error {
	return nil
}

// LogProvider writes every alert as an error-level log entry.
type LogProvider struct {
	logger logger.Logger
}

func NewLogProvider(l logger.Logger) *LogProvider {
	return &LogProvider{logger: l}
}

func (p *LogProvider) SendError(
	ctx context.Context,
	errCode, msg, operation string,
	details map[string]string,
) error {
	p.logger.
		WithContext(ctx).
		With(
			"error_code", errCode,
			"operation", operation,
			"details", details,
		).
		Error(msg)
	return nil
}

// holder keeps the concrete type stored in global constant.
type holder struct {
	provider Provider
}

//nolint:gochecknoglobals // process-wide alert provider
var (
	global   atomic.Value
	setOnce  sync.Once
	initOnce sync.Once
)

// SetGlobal builds the provider named in cfg and installs it as the process-wide one.
// A global may be installed once; a failed build does not count.
func SetGlobal(cfg Config) error {
	p, err := NewProvider(cfg)
	if err != nil {
		return errx.Wrap(err)
	}
	return SetGlobalProvider(p)
}

// SetGlobalProvider installs p as the process-wide provider. Alert middleware built
// without an explicit provider picks it up on its next alert.
func SetGlobalProvider(p Provider) error {
	if p == nil {
		return errx.New(
			"[alert]: global provider is nil",
			errx.WithCode(CodeInvalidProvider),
			errx.WithType(errx.T_Validation),
		)
	}

	installed := false
	setOnce.Do(func() {
		initOnce.Do(func() {})
		global.Store(holder{provider: p})
		installed = true
	})

	if !installed {
		return errx.New(
			"[alert]: global provider can only be set once",
			errx.WithCode(CodeGlobalAlreadySet),
			errx.WithType(errx.T_Conflict),
		)
	}
	return nil
}

// Global returns the process-wide provider, a no-op one if SetGlobal was never called.
func Global() Provider {
	initOnce.Do(func() {
		global.Store(holder{provider: noopProvider{}})
	})

	h, ok := global.Load().(holder)
	if !ok {
		panic("[alert]: global contains invalid type")
	}
	return h.provider
}
