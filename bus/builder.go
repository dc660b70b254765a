package bus

import (
	"sync"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/rise-and-shine/cmdbus/handler"
	"github.com/rise-and-shine/cmdbus/logger"
	"github.com/samber/lo"
)

// Builder accumulates configuration for a CommandBus. It starts unbuilt; a successful
// Build moves it to built for good and every later Build fails with
// command.CodeBusAlreadyBuilt. A failed Build leaves it unbuilt.
//
// Configuration is expected to happen on a single goroutine before the bus is used.
type Builder struct {
	extractor handler.CommandNameExtractor
	locator   handler.Locator
	inflector handler.MethodNameInflector
	refs      []MiddlewareRef
	services  Lookuper
	logger    logger.Logger

	mu    sync.Mutex
	built bool
}

// NewBuilder returns a builder with the default collaborators: ClassNameExtractor, an
// empty InMemoryLocator and the ClassName inflector.
func NewBuilder() *Builder {
	return &Builder{
		extractor: handler.ClassNameExtractor{},
		locator:   handler.NewInMemoryLocator(),
		inflector: handler.ClassName,
		services:  NewRegistry(),
		logger:    logger.Named("cmdbus.bus"),
	}
}

func (b *Builder) WithExtractor(e handler.CommandNameExtractor) *Builder {
	b.extractor = e
	return b
}

func (b *Builder) WithLocator(l handler.Locator) *Builder {
	b.locator = l
	return b
}

func (b *Builder) WithInflector(i handler.MethodNameInflector) *Builder {
	b.inflector = i
	return b
}

// WithInflectorName selects a built-in inflector by configuration name.
// Unknown names select ClassName.
func (b *Builder) WithInflectorName(name string) *Builder {
	b.inflector = handler.ParseStrategy(name)
	return b
}

// WithMiddleware appends refs to the configured middleware, in order.
func (b *Builder) WithMiddleware(refs ...MiddlewareRef) *Builder {
	b.refs = append(b.refs, refs...)
	return b
}

// WithRegistry sets where Ref keys are resolved.
func (b *Builder) WithRegistry(services Lookuper) *Builder {
	b.services = services
	return b
}

func (b *Builder) WithLogger(l logger.Logger) *Builder {
	b.logger = l
	return b
}

// Locator returns the configured locator, so handlers can be added to the default
// InMemoryLocator before Build.
func (b *Builder) Locator() handler.Locator {
	return b.locator
}

// Build resolves every middleware reference, validates the handler collaborators and
// assembles the chain with the terminal handler middleware last. Configuration errors are
// returned as produced so their codes and details stay intact.
func (b *Builder) Build() (*CommandBus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return nil, errx.New(
			"[bus]: command bus is already built",
			errx.WithCode(command.CodeBusAlreadyBuilt),
			errx.WithType(errx.T_Internal),
		)
	}

	middleware := make([]command.Middleware, 0, len(b.refs))
	for _, ref := range b.refs {
		mw, err := ResolveMiddleware(b.services, ref)
		if err != nil {
			return nil, err
		}
		middleware = append(middleware, mw)
	}

	terminal, err := handler.NewCommandHandlerMiddleware(b.extractor, b.locator, b.inflector)
	if err != nil {
		return nil, err
	}

	bus, err := New(terminal, middleware...)
	if err != nil {
		return nil, err
	}

	b.built = true
	if b.logger != nil {
		b.logger.With(
			"middleware_count", len(middleware),
			"middleware", refNames(b.refs),
		).Debug("command bus built")
	}
	return bus, nil
}

func refNames(refs []MiddlewareRef) []string {
	return lo.Map(refs, func(r MiddlewareRef, _ int) string { return r.String() })
}
