package bus

import (
	"slices"
	"sync"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/cmdbus/command"
	"github.com/samber/lo"
)

// Lookuper is the read side of a service registry. ResolveMiddleware only needs this,
// so a host can pass its own container instead of a Registry.
type Lookuper interface {
	Lookup(key string) (any, bool)
}

// Registry maps symbolic keys to named services, typically middleware.
// Registering an existing key replaces the previous value.
type Registry struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]any)}
}

// Register stores service under key.
func (r *Registry) Register(key string, service any) error {
	if key == "" {
		return errx.New(
			"[bus.registry]: service key is required",
			errx.WithCode(command.CodeInvalidConfiguration),
			errx.WithType(errx.T_Validation),
		)
	}

	r.mu.Lock()
	r.services[key] = service
	r.mu.Unlock()
	return nil
}

// Lookup returns the service registered under key.
func (r *Registry) Lookup(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.services[key]
	return s, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := lo.Keys(r.services)
	r.mu.RUnlock()

	slices.Sort(keys)
	return keys
}
