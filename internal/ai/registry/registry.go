package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/ai/gemini"
	"github.com/thomas-vilte/reqtracker/internal/ai/openai"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/httpclient"
	"github.com/thomas-vilte/reqtracker/internal/logger"
)

// Registry maps provider tags to backend factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ai.BackendFactory
}

func New() *Registry {
	return &Registry{
		factories: make(map[string]ai.BackendFactory),
	}
}

// Default returns a registry with the openai, azure and gemini backends.
func Default(client httpclient.HTTPClient) *Registry {
	r := New()
	_ = r.Register(openai.NewFactory(client))
	_ = r.Register(openai.NewAzureFactory(client))
	_ = r.Register(gemini.NewFactory(client))
	return r
}

func (r *Registry) Register(factory ai.BackendFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := factory.Name()
	if _, exists := r.factories[name]; exists {
		return domainErrors.NewAppError(domainErrors.TypeInternal, "backend provider already registered", nil).
			WithContext("provider", name)
	}

	r.factories[name] = factory
	return nil
}

func (r *Registry) Get(name string) (ai.BackendFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, domainErrors.ErrProviderNotSupported.WithContext("provider", name)
	}

	return factory, nil
}

// List returns the registered provider tags in alphabetical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]string, 0, len(r.factories))
	for name := range r.factories {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}

// NewBackend builds the backend for the handle's provider.
func (r *Registry) NewBackend(ctx context.Context, h ai.BackendHandle) (ai.Backend, error) {
	factory, err := r.Get(string(h.Provider))
	if err != nil {
		return nil, err
	}

	if err := factory.ValidateHandle(h); err != nil {
		return nil, err
	}

	backend, err := factory.NewBackend(ctx, h)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "backend created", "backend", h)
	return backend, nil
}
