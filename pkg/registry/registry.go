package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/graph"
)

// Factory builds a node kind from its persisted configuration.
// A nil or empty config must yield the kind's defaults.
type Factory func(config map[string]any) (graph.Kind, error)

// Registry manages the available node kinds.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]Factory),
	}
}

// Register adds a kind factory to the registry.
// If a kind with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[name]
	return ok
}

// Names returns the registered kind names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Kind looks up a factory by name and builds the kind.
func (r *Registry) Kind(name string, config map[string]any) (graph.Kind, error) {
	r.mu.RLock()
	fn, ok := r.kinds[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("kind %q: %w", name, domain.ErrUnknownKind)
	}

	kind, err := fn(config)
	if err != nil {
		return nil, fmt.Errorf("kind %q: %w", name, err)
	}
	return kind, nil
}

// NewNode builds a kind and wraps it in a node with the given identifier.
func (r *Registry) NewNode(id, kind string, config map[string]any) (*graph.Node, error) {
	k, err := r.Kind(kind, config)
	if err != nil {
		return nil, err
	}
	return graph.NewNode(id, k)
}
