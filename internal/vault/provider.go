// internal/vault/provider.go
package vault

import (
	"context"
	"sync"

	"stash/internal/tree"
	"stash/internal/validation"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Provider resolves vault target identities into tree handles. Loading
// may be slow for cold targets, so callers bound it with a timeout;
// the provider itself honors context cancellation between steps.
type Provider struct {
	db       *badger.DB
	blobs    *BlobStore
	registry *Registry
	logger   *zap.Logger

	mu   sync.Mutex
	open map[string]*Tree
}

func NewProvider(db *badger.DB, blobs *BlobStore, registry *Registry, logger *zap.Logger) *Provider {
	return &Provider{
		db:       db,
		blobs:    blobs,
		registry: registry,
		logger:   logger,
		open:     make(map[string]*Tree),
	}
}

// GetOrLoad returns the tree for target, opening it on first use.
// Handles are shared; the provider owns them, not the caller.
func (p *Provider) GetOrLoad(ctx context.Context, target string) (tree.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.ValidateTarget(target); err != nil {
		return nil, err
	}

	if _, err := p.registry.Get(target); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.open[target]; ok {
		return t, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := NewTree(p.db, p.blobs, NameOf(target), p.logger)
	p.open[target] = t
	p.logger.Info("opened vault", zap.String("target", target))
	return t, nil
}
