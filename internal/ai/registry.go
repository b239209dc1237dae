package ai

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ProviderFactory builds a provider for model; an empty model means the
// backend's configured default.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry resolves AI_PROVIDER names to language model backends.
type Registry struct {
	mu          sync.RWMutex
	factories   map[string]ProviderFactory
	defaultName string
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{
		factories:   make(map[string]ProviderFactory),
		defaultName: normalize(defaultName),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) Register(name string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = f
}

// Names lists the registered backends in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Get builds the named backend. A blank name selects the registry default.
func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = normalize(name)
	if name == "" {
		name = r.defaultName
	}
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider %q (have %s)", name, strings.Join(r.Names(), ", "))
	}
	return f(ctx, model)
}
