package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/srithedesigner/credmatrix-backend/internal/payment/domain"
)

// Registry resolves top-up gateways by provider name.
type Registry struct {
	factories map[string]domain.AdapterFactory
}

// NewRegistry indexes factories by normalized provider name. Two factories
// claiming the same provider is a wiring error.
func NewRegistry(factories ...domain.AdapterFactory) (*Registry, error) {
	registry := &Registry{factories: make(map[string]domain.AdapterFactory, len(factories))}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		name := normalizeProvider(factory.Provider())
		if name == "" {
			return nil, fmt.Errorf("%w: factory without provider name", domain.ErrInvalidConfig)
		}
		if _, dup := registry.factories[name]; dup {
			return nil, fmt.Errorf("%w: provider %q registered twice", domain.ErrInvalidConfig, name)
		}
		registry.factories[name] = factory
	}
	return registry, nil
}

// Providers lists registered provider names in order.
func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the gateway for provider from its settings.
func (r *Registry) Open(provider string, settings map[string]any) (domain.Gateway, error) {
	name := normalizeProvider(provider)
	if r == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, name)
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, name)
	}
	gateway, err := factory.NewAdapter(domain.AdapterConfig{Config: settings})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return gateway, nil
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
