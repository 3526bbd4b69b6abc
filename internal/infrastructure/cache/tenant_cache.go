// Package cache provides caching infrastructure with PostgreSQL LISTEN/NOTIFY support.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"bartally/internal/domain/catalogs/item"
	"bartally/internal/infrastructure/storage/postgres"
	"bartally/pkg/logger"
)

// TenantCache caches per-tenant read-mostly data: the active item index the
// voice resolver matches against, and feature flags. Invalidation rides on
// PostgreSQL LISTEN/NOTIFY, so there is no TTL polling and updates land in
// near-realtime.
//
// One TenantCache serves one tenant database; the Registry hands them out.
type TenantCache struct {
	pool *pgxpool.Pool
	mu   sync.RWMutex

	items        []*item.Item // active, non-folder items ordered by name
	itemsLoaded  bool
	featureFlags map[string]FeatureFlag // flagName -> flag

	// Listeners for cache invalidation
	listeners   []InvalidationListener
	listenersMu sync.RWMutex

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// FeatureFlag represents a feature flag.
type FeatureFlag struct {
	ID          string
	FlagName    string
	Description string
	IsEnabled   bool
	Variant     string
	Config      map[string]any
	ValidFrom   *time.Time
	ValidUntil  *time.Time
}

// InvalidationListener is called when cache is invalidated.
type InvalidationListener func(channel string, payload string)

// NewTenantCache creates a cache over the tenant's database pool.
func NewTenantCache(pool *pgxpool.Pool) *TenantCache {
	return &TenantCache{
		pool:         pool,
		featureFlags: make(map[string]FeatureFlag),
	}
}

// Start begins listening for NOTIFY events and loads initial data.
func (c *TenantCache) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lifecycleMu.Unlock()

	// Load initial data
	if err := c.loadItems(c.ctx); err != nil {
		c.Stop()
		return fmt.Errorf("load item index: %w", err)
	}
	if err := c.loadFeatureFlags(c.ctx); err != nil {
		c.Stop()
		return fmt.Errorf("load feature flags: %w", err)
	}

	// Start listener goroutine
	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "tenant cache started")
	return nil
}

// Stop gracefully stops the cache listener.
func (c *TenantCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "tenant cache stopped")
}

// listenLoop listens for PostgreSQL NOTIFY events.
func (c *TenantCache) listenLoop() {
	defer c.wg.Done()

	acquireFailures := 0
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Acquire dedicated connection for LISTEN
		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			// The tenant pool may have been evicted under us; give up after a
			// minute instead of spinning against a closed pool. The registry
			// builds a fresh cache when the tenant comes back.
			acquireFailures++
			if acquireFailures >= 60 {
				logger.Error(c.ctx, "giving up LISTEN after repeated failures", "failures", acquireFailures)
				return
			}
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}
		acquireFailures = 0

		// Subscribe to channels
		_, err = conn.Exec(c.ctx, "LISTEN catalog_items_changed; LISTEN feature_flags_changed;")
		if err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		logger.Info(c.ctx, "listening for catalog_items_changed and feature_flags_changed notifications")

		// Wait for notifications
		c.waitForNotifications(conn)
		conn.Release()
	}
}

// waitForNotifications blocks waiting for NOTIFY events.
func (c *TenantCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Wait for notification with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return // Shutting down
			}
			// Timeout is expected, continue listening
			continue
		}

		logger.Debug(c.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)

		// Handle notification
		c.handleNotification(notification.Channel, notification.Payload)
	}
}

// handleNotification processes NOTIFY event.
func (c *TenantCache) handleNotification(channel, payload string) {
	switch channel {
	case "catalog_items_changed":
		// Any item mutation reloads the whole index; the active set is small
		// (hundreds of rows) and partial reloads are not worth the bookkeeping.
		if err := c.loadItems(c.ctx); err != nil {
			logger.Error(c.ctx, "failed to reload item index", "error", err)
		}

	case "feature_flags_changed":
		if err := c.loadFeatureFlags(c.ctx); err != nil {
			logger.Error(c.ctx, "failed to reload feature flags", "error", err)
		}
	}

	// Notify registered listeners with panic recovery (no goroutine fan-out).
	// This keeps invalidation delivery bounded and avoids goroutine storms on bursts of NOTIFY events.
	c.listenersMu.RLock()
	for _, listener := range c.listeners {
		func(l InvalidationListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(c.ctx, "listener panic recovered", "channel", channel, "panic", r)
				}
			}()
			l(channel, payload)
		}(listener)
	}
	c.listenersMu.RUnlock()
}

// loadItems loads the active item index from the tenant database.
func (c *TenantCache) loadItems(ctx context.Context) error {
	cols := postgres.ExtractDBColumns[item.Item]()
	query := fmt.Sprintf(`
		SELECT %s FROM cat_items
		WHERE is_active = TRUE AND is_folder = FALSE AND deletion_mark = FALSE
		ORDER BY name
	`, strings.Join(cols, ", "))

	var items []*item.Item
	if err := pgxscan.Select(ctx, c.pool, &items, query); err != nil {
		return fmt.Errorf("query items: %w", err)
	}

	c.mu.Lock()
	c.items = items
	c.itemsLoaded = true
	c.mu.Unlock()

	logger.Info(ctx, "loaded item index", "items", len(items))
	return nil
}

// ListActive returns the cached active items.
// Satisfies the item source of the voice command adapter. When the cache has
// not been started the index is loaded on first use.
func (c *TenantCache) ListActive(ctx context.Context) ([]*item.Item, error) {
	c.mu.RLock()
	loaded := c.itemsLoaded
	items := c.items
	c.mu.RUnlock()

	if !loaded {
		if err := c.loadItems(ctx); err != nil {
			return nil, err
		}
		c.mu.RLock()
		items = c.items
		c.mu.RUnlock()
	}

	// Return a copy to prevent external mutation of internal cache state.
	return append([]*item.Item(nil), items...), nil
}

// InvalidateItems marks the item index stale; the next ListActive reloads it.
func (c *TenantCache) InvalidateItems() {
	c.mu.Lock()
	c.itemsLoaded = false
	c.mu.Unlock()
}

// loadFeatureFlags loads all feature flags from database.
func (c *TenantCache) loadFeatureFlags(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `
		SELECT id, flag_name, description, is_enabled, variant,
			   config, valid_from, valid_until
		FROM sys_feature_flags
	`)
	if err != nil {
		return fmt.Errorf("query feature flags: %w", err)
	}
	defer rows.Close()

	flags := make(map[string]FeatureFlag)
	now := time.Now()

	for rows.Next() {
		var f FeatureFlag
		var config []byte

		err := rows.Scan(
			&f.ID, &f.FlagName, &f.Description, &f.IsEnabled, &f.Variant,
			&config, &f.ValidFrom, &f.ValidUntil,
		)
		if err != nil {
			return fmt.Errorf("scan feature flag: %w", err)
		}

		if len(config) > 0 {
			var m map[string]any
			if err := json.Unmarshal(config, &m); err != nil {
				return fmt.Errorf("unmarshal feature flag config (%s): %w", f.FlagName, err)
			}
			f.Config = m
		}

		// Check validity period
		if f.ValidFrom != nil && now.Before(*f.ValidFrom) {
			f.IsEnabled = false
		}
		if f.ValidUntil != nil && now.After(*f.ValidUntil) {
			f.IsEnabled = false
		}

		flags[f.FlagName] = f
	}

	c.mu.Lock()
	c.featureFlags = flags
	c.mu.Unlock()

	logger.Info(ctx, "loaded feature flags", "count", len(flags))
	return nil
}

// IsFeatureEnabled checks if feature flag is enabled.
func (c *TenantCache) IsFeatureEnabled(flagName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	flag, ok := c.featureFlags[flagName]
	return ok && flag.IsEnabled
}

// GetFeatureVariant returns variant for A/B test.
func (c *TenantCache) GetFeatureVariant(flagName string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if flag, ok := c.featureFlags[flagName]; ok {
		return flag.Variant
	}
	return ""
}

// GetFeatureConfig returns a shallow copy of feature flag config (map) if present.
// It returns nil if flag is missing or has no config.
func (c *TenantCache) GetFeatureConfig(flagName string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	flag, ok := c.featureFlags[flagName]
	if !ok || len(flag.Config) == 0 {
		return nil
	}
	cfg := make(map[string]any, len(flag.Config))
	for k, v := range flag.Config {
		cfg[k] = v
	}
	return cfg
}

// OnInvalidation registers a callback for cache invalidation events.
func (c *TenantCache) OnInvalidation(listener InvalidationListener) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, listener)
	c.listenersMu.Unlock()
}

// CacheStats describes cache contents.
type CacheStats struct {
	ItemsCount        int
	FeatureFlagsCount int
}

// GetStats returns current cache statistics.
func (c *TenantCache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		ItemsCount:        len(c.items),
		FeatureFlagsCount: len(c.featureFlags),
	}
}
