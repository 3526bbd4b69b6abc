// Package main is the entry point for the Bartally API server.
// Multi-tenant architecture: Database-per-Tenant.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bartally/internal/core/security"
	"bartally/internal/core/tenant"
	"bartally/internal/domain/auth"
	"bartally/internal/infrastructure/cache"
	v1 "bartally/internal/infrastructure/http/v1"
	"bartally/internal/infrastructure/numerator"
	"bartally/internal/infrastructure/storage/postgres/auth_repo"
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

	ctx := context.Background()
	log.Info("starting bartally server (multi-tenant mode)")

	// --- Meta-database connection ---
	metaPool, err := pgxpool.New(ctx, cfg.MetaDB.URL)
	if err != nil {
		log.Fatalw("failed to connect to meta database", "error", err)
	}
	defer metaPool.Close()

	if err := metaPool.Ping(ctx); err != nil {
		log.Fatalw("failed to ping meta database", "error", err)
	}
	log.Info("meta database connection established")

	// --- Tenant Registry and Manager ---
	registry := tenant.NewPostgresRegistry(metaPool)

	managerCfg := tenant.DefaultManagerConfig()
	managerCfg.DBUser = cfg.Tenant.DBUser
	managerCfg.DBPassword = cfg.Tenant.DBPassword

	// Optional configuration overrides
	if cfg.Tenant.MaxPools > 0 {
		managerCfg.MaxTotalPools = cfg.Tenant.MaxPools
	}
	if cfg.Tenant.MaxConnsPerPool > 0 {
		managerCfg.MaxConnsPerTenant = int32(cfg.Tenant.MaxConnsPerPool)
	}
	if cfg.Tenant.PoolIdleTimeout > 0 {
		managerCfg.PoolIdleTimeout = cfg.Tenant.PoolIdleTimeout
	}

	tenantManager := tenant.NewManager(managerCfg, registry, log)
	defer tenantManager.Close()

	log.Infow("tenant manager initialized",
		"max_pools", managerCfg.MaxTotalPools,
		"max_conns_per_tenant", managerCfg.MaxConnsPerTenant,
		"idle_timeout", managerCfg.PoolIdleTimeout,
	)

	// Optional: Prewarm pools for known tenants
	if cfg.App.PrewarmPools {
		log.Info("prewarming tenant pools...")
		if err := tenantManager.PrewarmPools(ctx); err != nil {
			log.Warnw("failed to prewarm some pools", "error", err)
		}
	}

	// --- Per-tenant caches ---
	// Serves the active item index for voice counting and feature flags.
	// LISTEN connections start lazily per tenant on first use.
	cacheRegistry := cache.NewRegistry()
	defer cacheRegistry.StopAll()

	// --- JWT Service ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Auth Service ---
	// Note: Auth repos will get TxManager from context per-request
	userRepo := auth_repo.NewUserRepo()
	roleRepo := auth_repo.NewRoleRepo()
	permRepo := auth_repo.NewPermissionRepo()
	tokenRepo := auth_repo.NewTokenRepo()

	authConfig := auth.DefaultServiceConfig()
	authService := auth.NewService(
		userRepo,
		roleRepo,
		permRepo,
		tokenRepo,
		nil, // TxManager will come from context
		jwtService,
		authConfig,
	)

	// --- Numerator Service ---
	numeratorService := numerator.NewFromContext()

	// --- Metadata Registry ---
	metadataRegistry := setupMetadataRegistry()
	log.Info("metadata registry initialized")

	// --- Router ---
	router, err := v1.NewRouter(v1.RouterConfig{
		TenantManager:      tenantManager,
		MetaPool:           metaPool,
		Logger:             log,
		JWTValidator:       jwtService,
		AuthService:        authService,
		Numerator:          numeratorService,
		IdempotencyEnabled: cfg.App.IdempotencyEnabled,
		MetadataRegistry:   metadataRegistry,
		Cache:              cacheRegistry,
		Flags:              cache.NewCacheBackedFlags(cacheRegistry),
		BackdatePolicy:     backdatePolicy(cfg.Backdate),
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	// --- HTTP Server ---
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "addr", addr, "mode", "multi-tenant")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// backdatePolicy maps the configured mode onto a ledger backdate policy.
func backdatePolicy(b config.Backdate) security.BackdatePolicy {
	var closedUntil time.Time
	if !b.ClosedUntil.IsZero() {
		// Reject anything up to and including the configured month.
		closedUntil = b.ClosedUntil.AddDate(0, 1, 0)
	}

	switch b.Mode {
	case config.BackdateStrict:
		return security.NewStrictPolicy(closedUntil)
	case config.BackdateFlexible:
		return security.NewFlexiblePolicy(time.Duration(b.WarningDays)*24*time.Hour, closedUntil)
	default:
		return security.OpenPolicy{}
	}
}
