// Package main is the entry point for the Bartally background worker.
// Multi-tenant architecture: processes jobs for all tenants.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bartally/internal/core/tenant"
	"bartally/internal/infrastructure/broker"
	"bartally/internal/infrastructure/storage/postgres"
	"bartally/pkg/config"
	"bartally/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting bartally multi-tenant worker")

	// Connect to meta-database
	metaPool, err := pgxpool.New(ctx, cfg.MetaDB.URL)
	if err != nil {
		log.Fatalw("failed to connect to meta database", "error", err)
	}
	defer metaPool.Close()

	// Create tenant registry and manager
	registry := tenant.NewPostgresRegistry(metaPool)

	managerCfg := tenant.DefaultManagerConfig()
	managerCfg.DBUser = cfg.Tenant.DBUser
	managerCfg.DBPassword = cfg.Tenant.DBPassword
	managerCfg.PoolIdleTimeout = 10 * time.Minute // Shorter for worker

	manager := tenant.NewManager(managerCfg, registry, log)
	defer manager.Close()

	// Event publisher. Without a broker the outbox still drains: events are
	// logged and marked published so development setups don't accumulate rows.
	var publisher *broker.Publisher
	if cfg.Broker.URL != "" {
		publisher, err = broker.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			log.Fatalw("failed to connect to broker", "error", err)
		}
		defer publisher.Close()
		log.Infow("broker connected", "exchange", cfg.Broker.Exchange)
	} else {
		log.Warn("AMQP_URL not set; events will be logged, not published")
	}

	// Start multi-tenant worker
	worker := NewMultiTenantWorker(manager, log, publisher, cfg.Outbox)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// MultiTenantWorker relays outbox events and runs housekeeping for all tenants.
type MultiTenantWorker struct {
	manager   *tenant.Manager
	log       *logger.Logger
	publisher *broker.Publisher
	outbox    config.Outbox
}

func NewMultiTenantWorker(manager *tenant.Manager, log *logger.Logger, publisher *broker.Publisher, outbox config.Outbox) *MultiTenantWorker {
	return &MultiTenantWorker{
		manager:   manager,
		log:       log.WithComponent("worker"),
		publisher: publisher,
		outbox:    outbox,
	}
}

// Run starts worker goroutines for all active tenants.
func (w *MultiTenantWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	var wg sync.WaitGroup
	tenantContexts := make(map[string]context.CancelFunc) // tenant_id(UUID) -> cancel
	var mu sync.Mutex

	// Initial start
	w.refreshTenants(ctx, &wg, tenantContexts, &mu)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, cancel := range tenantContexts {
				cancel()
			}
			mu.Unlock()
			wg.Wait()
			return

		case <-ticker.C:
			w.refreshTenants(ctx, &wg, tenantContexts, &mu)
		}
	}
}

func (w *MultiTenantWorker) refreshTenants(ctx context.Context, wg *sync.WaitGroup, tenantContexts map[string]context.CancelFunc, mu *sync.Mutex) {
	tenants, err := w.manager.GetActiveTenants(ctx)
	if err != nil {
		w.log.Errorw("failed to get active tenants", "error", err)
		return
	}

	activeTenants := make(map[string]*tenant.Tenant, len(tenants))
	for _, t := range tenants {
		activeTenants[t.ID] = t
	}

	mu.Lock()
	defer mu.Unlock()

	for tenantID, cancel := range tenantContexts {
		if _, active := activeTenants[tenantID]; !active {
			cancel()
			delete(tenantContexts, tenantID)
			w.log.Infow("stopped worker for inactive tenant", "tenant_id", tenantID)
		}
	}

	for _, t := range tenants {
		if _, exists := tenantContexts[t.ID]; !exists {
			tenantCtx, tenantCancel := context.WithCancel(ctx)
			tenantContexts[t.ID] = tenantCancel

			wg.Add(1)
			go func(t *tenant.Tenant) {
				defer wg.Done()
				w.runTenantWorker(tenantCtx, t)
			}(t)

			w.log.Infow("started worker for tenant", "tenant_id", t.ID)
		}
	}
}

// handlerFor picks the event destination for one tenant's relay.
func (w *MultiTenantWorker) handlerFor(tenantID string) postgres.OutboxHandler {
	if w.publisher != nil {
		return w.publisher.ForTenant(tenantID)
	}
	return &logHandler{log: w.log, tenantID: tenantID}
}

func (w *MultiTenantWorker) runTenantWorker(ctx context.Context, t *tenant.Tenant) {
	mp, err := w.manager.GetPool(ctx, t.ID)
	if err != nil {
		w.log.Errorw("failed to get pool for tenant", "tenant_id", t.ID, "error", err)
		return
	}

	relay := postgres.NewOutboxRelay(mp.Pool(), w.outbox.BatchSize, w.handlerFor(t.ID))

	ticker := time.NewTicker(w.outbox.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Infow("stopping worker for tenant", "tenant_id", t.ID)
			return
		case <-ticker.C:
			w.relayOutbox(ctx, relay, t.ID)
		case <-cleanupTicker.C:
			w.moveDeadLetters(ctx, relay, t.ID)
			w.cleanupSessions(ctx, mp.Pool(), t.ID)
			w.cleanupIdempotency(ctx, mp.Pool(), t.ID)
		}
	}
}

func (w *MultiTenantWorker) relayOutbox(ctx context.Context, relay *postgres.OutboxRelay, tenantID string) {
	processed, err := relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox batch failed", "tenant_id", tenantID, "error", err)
		return
	}

	if processed > 0 {
		w.log.Debugw("published outbox batch", "tenant_id", tenantID, "count", processed)
	}
}

func (w *MultiTenantWorker) moveDeadLetters(ctx context.Context, relay *postgres.OutboxRelay, tenantID string) {
	moved, err := relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("failed to move dead letters", "tenant_id", tenantID, "error", err)
		return
	}

	if moved > 0 {
		w.log.Warnw("moved events to dead letter queue", "tenant_id", tenantID, "count", moved)
	}
}

func (w *MultiTenantWorker) cleanupSessions(ctx context.Context, pool *pgxpool.Pool, tenantID string) {
	// Revoked tokens are kept for 7 days for incident review.
	result, err := pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at < NOW() OR revoked_at < NOW() - INTERVAL '7 days'
	`)
	if err != nil {
		return
	}

	if result.RowsAffected() > 0 {
		w.log.Infow("cleaned up expired sessions", "tenant_id", tenantID, "count", result.RowsAffected())
	}
}

func (w *MultiTenantWorker) cleanupIdempotency(ctx context.Context, pool *pgxpool.Pool, tenantID string) {
	result, err := pool.Exec(ctx, `
		DELETE FROM sys_idempotency
		WHERE expires_at < NOW()
	`)
	if err != nil {
		return
	}

	if result.RowsAffected() > 0 {
		w.log.Infow("cleaned up idempotency keys", "tenant_id", tenantID, "count", result.RowsAffected())
	}
}

// logHandler is the no-broker fallback destination.
type logHandler struct {
	log      *logger.Logger
	tenantID string
}

func (h *logHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	h.log.Infow("event (no broker configured)",
		"tenant_id", h.tenantID,
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
	)
	return nil
}
