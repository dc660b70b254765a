// Package provider wires a command bus from symbolic configuration.
//
// A Provider owns a service registry seeded with the default collaborators and the stock
// middleware. Hosts override services with Set, register handlers and their own
// middleware, then call Build once the configuration phase is over.
package provider

import (
	"context"
	"sync"

	"github.com/rcrowley/go-metrics"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/trace"

	"github.com/rise-and-shine/cmdbus/alert"
	"github.com/rise-and-shine/cmdbus/bus"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/handler"
	"github.com/rise-and-shine/cmdbus/logger"
	"github.com/rise-and-shine/cmdbus/middleware"
)

// Service keys of the three handler collaborators.
const (
	KeyLocator   = "cmdbus.locator"
	KeyExtractor = "cmdbus.command_extractor"
	KeyInflector = "cmdbus.inflector"
)

// Keys of the stock middleware registered by New.
const (
	MiddlewareLocking     = "locking"
	MiddlewareLogging     = "logging"
	MiddlewareRecovery    = "recovery"
	MiddlewareTracing     = "tracing"
	MiddlewareTimeout     = "timeout"
	MiddlewareRetry       = "retry"
	MiddlewareValidation  = "validation"
	MiddlewareMetrics     = "metrics"
	MiddlewareMeta        = "meta"
	MiddlewareAlert       = "alert"
	MiddlewareTransaction = "transaction"
)

// Provider assembles a CommandBus from Config and registered services.
type Provider struct {
	cfg      Config
	logger   logger.Logger
	services *bus.Registry
	extra    []bus.MiddlewareRef

	tracerProvider trace.TracerProvider
	metrics        metrics.Registry
	alerts         alert.Provider
	db             middleware.TxRunner

	mu  sync.Mutex
	bus *bus.CommandBus
}

// Option customises a Provider.
type Option func(*Provider)

// WithLogger replaces the global logger; nil keeps it.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Provider) { p.tracerProvider = tp }
}

func WithMetricsRegistry(r metrics.Registry) Option {
	return func(p *Provider) { p.metrics = r }
}

func WithAlertProvider(a alert.Provider) Option {
	return func(p *Provider) { p.alerts = a }
}

// WithDB enables the "transaction" middleware key.
func WithDB(db middleware.TxRunner) Option {
	return func(p *Provider) { p.db = db }
}

// WithMiddleware appends middleware after the keys listed in Config. Each value is a
// command.Middleware, a middleware function or a registered key.
func WithMiddleware(values ...any) Option {
	return func(p *Provider) {
		p.extra = append(p.extra, lo.Map(values, func(v any, _ int) bus.MiddlewareRef { return bus.RefOf(v) })...)
	}
}

// New validates cfg and registers the default services and stock middleware.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	p := &Provider{
		cfg:      cfg,
		logger:   logger.With(),
		services: bus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.registerDefaults()
	return p, nil
}

func (p *Provider) registerDefaults() {
	l := p.logger
	services := map[string]any{
		KeyLocator:   handler.NewInMemoryLocator(),
		KeyExtractor: handler.ClassNameExtractor{},
		KeyInflector: p.cfg.Inflector,

		MiddlewareLocking:    middleware.NewLocking(),
		MiddlewareLogging:    middleware.NewLogger(l),
		MiddlewareRecovery:   middleware.NewRecovery(l),
		MiddlewareTracing:    middleware.NewTracing(p.tracerProvider),
		MiddlewareTimeout:    middleware.NewTimeout(p.cfg.Timeout),
		MiddlewareRetry:      middleware.NewRetry(l, p.cfg.Retry.Attempts, p.cfg.Retry.Delay),
		MiddlewareValidation: middleware.NewValidation(),
		MiddlewareMetrics:    middleware.NewMetrics(p.metrics),
		MiddlewareMeta:       middleware.NewMeta(p.cfg.ServiceName, p.cfg.ServiceVersion),
		MiddlewareAlert:      middleware.NewAlert(l, p.alerts),
	}
	if p.db != nil {
		services[MiddlewareTransaction] = middleware.NewTransaction(p.db, nil)
	}

	for key, service := range services {
		_ = p.services.Register(key, service) // keys are non-empty constants
	}
}

// Set registers or replaces a service. Overrides of KeyLocator, KeyExtractor and
// KeyInflector are checked against their contracts when the bus is built.
func (p *Provider) Set(key string, value any) error {
	return p.services.Register(key, value)
}

// Get returns the service registered under key.
func (p *Provider) Get(key string) (any, bool) {
	return p.services.Lookup(key)
}

// RegisterMiddleware makes mw available to Config.Middleware under key.
func (p *Provider) RegisterMiddleware(key string, mw any) error {
	return p.services.Register(key, mw)
}

type handlerRegistrar interface {
	AddHandler(key string, handler any) error
}

// RegisterHandler adds a handler to the configured locator, which must accept registrations
// the way handler.InMemoryLocator does.
func (p *Provider) RegisterHandler(key string, h any) error {
	v, _ := p.services.Lookup(KeyLocator)
	r, ok := v.(handlerRegistrar)
	if !ok || command.IsNil(r) {
		return command.InvalidConfiguration("locator", "AddHandler(key string, handler any) error")
	}
	return r.AddHandler(key, h)
}

// RegisterHandlerFor registers h under the key ClassNameExtractor derives from cmd.
func (p *Provider) RegisterHandlerFor(cmd, h any) error {
	key, err := handler.ClassNameExtractor{}.Extract(cmd)
	if err != nil {
		return err
	}
	return p.RegisterHandler(key, h)
}

// Build assembles the bus on the first call and returns the same bus afterwards.
// A failed Build can be retried once the configuration is fixed.
func (p *Provider) Build() (*bus.CommandBus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bus != nil {
		return p.bus, nil
	}

	extractor, err := lookupAs[handler.CommandNameExtractor](p.services, KeyExtractor,
		"command name extractor", "handler.CommandNameExtractor")
	if err != nil {
		return nil, err
	}
	locator, err := lookupAs[handler.Locator](p.services, KeyLocator, "locator", "handler.Locator")
	if err != nil {
		return nil, err
	}
	inflector, err := p.inflector()
	if err != nil {
		return nil, err
	}

	refs := lo.Map(p.cfg.Middleware, func(key string, _ int) bus.MiddlewareRef { return bus.Ref(key) })
	refs = append(refs, p.extra...)

	b, err := bus.NewBuilder().
		WithExtractor(extractor).
		WithLocator(locator).
		WithInflector(inflector).
		WithRegistry(p.services).
		WithMiddleware(refs...).
		WithLogger(p.logger.Named("cmdbus.bus")).
		Build()
	if err != nil {
		return nil, err
	}

	p.bus = b
	return b, nil
}

// inflector accepts a configuration name or a handler.MethodNameInflector.
func (p *Provider) inflector() (handler.MethodNameInflector, error) {
	v, _ := p.services.Lookup(KeyInflector)
	switch x := v.(type) {
	case string:
		return handler.ParseStrategy(x), nil
	case handler.MethodNameInflector:
		if !command.IsNil(x) {
			return x, nil
		}
	}
	return nil, command.InvalidConfiguration("inflector", "handler.MethodNameInflector")
}

func lookupAs[T any](services bus.Lookuper, key, collaborator, contract string) (T, error) {
	v, _ := services.Lookup(key)
	t, ok := v.(T)
	if !ok || command.IsNil(t) {
		var zero T
		return zero, command.InvalidConfiguration(collaborator, contract)
	}
	return t, nil
}

// Dispatch builds the bus if needed and dispatches cmd through it.
func (p *Provider) Dispatch(ctx context.Context, cmd any) (any, error) {
	b, err := p.Build()
	if err != nil {
		return nil, err
	}
	return b.Dispatch(ctx, cmd)
}
