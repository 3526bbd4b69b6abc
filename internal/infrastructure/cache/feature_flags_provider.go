// Package cache provides per-tenant caching infrastructure.
package cache

import (
	"context"

	"bartally/internal/core/security"
)

// CacheBackedFlags implements security.FeatureFlagProvider on top of the
// tenant cache registry. Flags live in each tenant's own sys_feature_flags
// table and invalidate via PostgreSQL NOTIFY.
type CacheBackedFlags struct {
	registry *Registry
}

// NewCacheBackedFlags creates a feature flag provider backed by the registry.
func NewCacheBackedFlags(registry *Registry) *CacheBackedFlags {
	return &CacheBackedFlags{registry: registry}
}

// IsEnabled checks if feature is enabled for context's tenant.
// Fails closed: no tenant in context means no features.
func (f *CacheBackedFlags) IsEnabled(ctx context.Context, flag string) bool {
	c, err := f.registry.ForTenant(ctx)
	if err != nil {
		return false
	}
	return c.IsFeatureEnabled(flag)
}

// GetVariant returns variant name for A/B tests.
func (f *CacheBackedFlags) GetVariant(ctx context.Context, flag string) string {
	c, err := f.registry.ForTenant(ctx)
	if err != nil {
		return ""
	}
	return c.GetFeatureVariant(flag)
}

// GetValue returns typed value for feature configuration.
func (f *CacheBackedFlags) GetValue(ctx context.Context, flag string) any {
	c, err := f.registry.ForTenant(ctx)
	if err != nil {
		return nil
	}
	// GetFeatureConfig already returns a copy.
	return c.GetFeatureConfig(flag)
}

// Ensure interface compliance at compile time.
var _ security.FeatureFlagProvider = (*CacheBackedFlags)(nil)
