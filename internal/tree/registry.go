package tree

import (
	"sync"

	"go.uber.org/zap"
)

// Registry caches LocalTree handles by root path. Local trees are
// cheap to build but long-lived, and concurrent operations against the
// same workspace share one handle. The registry is process-scoped
// state with an explicit lifecycle so tests can construct isolated
// instances.
type Registry struct {
	mu     sync.Mutex
	trees  map[string]*LocalTree
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		trees:  make(map[string]*LocalTree),
		logger: logger,
	}
}

// Get returns the cached tree for root, creating it on first request.
func (r *Registry) Get(root string) (*LocalTree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.trees[root]; ok {
		return t, nil
	}

	t, err := NewLocalTree(root, r.logger)
	if err != nil {
		return nil, err
	}
	r.trees[root] = t
	return t, nil
}

// Evict drops the cached handle for root, typically when no workspace
// references it anymore.
func (r *Registry) Evict(root string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trees, root)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trees)
}
