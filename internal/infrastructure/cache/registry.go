package cache

import (
	"context"
	"sync"

	"bartally/internal/core/tenant"
	"bartally/internal/domain/catalogs/item"
	"bartally/pkg/logger"
)

// Registry hands out one TenantCache per tenant database. Caches are created
// lazily from the pool the TenantDB middleware put into the request context,
// so the registry never dials databases itself.
type Registry struct {
	mu     sync.Mutex
	caches map[string]*TenantCache
}

// NewRegistry creates an empty cache registry.
func NewRegistry() *Registry {
	return &Registry{
		caches: make(map[string]*TenantCache),
	}
}

// ForTenant returns the cache for the tenant in the context, creating and
// starting it on first use. If the tenant's pool was evicted and re-created,
// the stale cache is stopped and replaced.
func (r *Registry) ForTenant(ctx context.Context) (*TenantCache, error) {
	tenantID := tenant.GetTenantID(ctx)
	if tenantID == "" {
		return nil, tenant.ErrNoTenantInContext
	}
	pool, err := tenant.GetPool(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.caches[tenantID]; ok {
		if c.pool == pool {
			return c, nil
		}
		// Pool was rotated by the tenant manager; the old cache's LISTEN
		// connection is dead.
		c.Stop()
	}

	c := NewTenantCache(pool)
	if err := c.Start(context.Background()); err != nil {
		// Keep serving without LISTEN/NOTIFY: reads fall back to lazy loads.
		logger.Warn(ctx, "tenant cache started without notifications", "tenant_id", tenantID, "error", err)
	}
	r.caches[tenantID] = c
	return c, nil
}

// ListActive returns the active item index for the tenant in the context.
// Satisfies the item source of the voice command adapter.
func (r *Registry) ListActive(ctx context.Context) ([]*item.Item, error) {
	c, err := r.ForTenant(ctx)
	if err != nil {
		return nil, err
	}
	return c.ListActive(ctx)
}

// Invalidate drops the cached data for the tenant in the context, forcing a
// reload on next read. Used by catalog mutations on the same node; cross-node
// invalidation rides on NOTIFY.
func (r *Registry) Invalidate(ctx context.Context) {
	tenantID := tenant.GetTenantID(ctx)
	if tenantID == "" {
		return
	}
	r.mu.Lock()
	c, ok := r.caches[tenantID]
	r.mu.Unlock()
	if ok {
		c.InvalidateItems()
	}
}

// StopAll stops every tenant cache. Called on server shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tenantID, c := range r.caches {
		c.Stop()
		delete(r.caches, tenantID)
	}
}
