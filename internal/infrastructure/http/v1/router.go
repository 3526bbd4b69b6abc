// Package v1 provides HTTP API version 1.
package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"bartally/internal/core/numerator"
	"bartally/internal/core/security"
	"bartally/internal/core/tenant"
	"bartally/internal/domain/alerts"
	"bartally/internal/domain/audit"
	"bartally/internal/domain/auth"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/catalogs/supplier"
	"bartally/internal/domain/catalogs/venue"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/domain/period"
	"bartally/internal/domain/registers/ledger"
	"bartally/internal/domain/reports"
	"bartally/internal/domain/uom"
	"bartally/internal/domain/voice"
	"bartally/internal/infrastructure/cache"
	"bartally/internal/infrastructure/http/v1/handlers"
	"bartally/internal/infrastructure/http/v1/middleware"
	"bartally/internal/infrastructure/storage/postgres"
	"bartally/internal/infrastructure/storage/postgres/alert_repo"
	"bartally/internal/infrastructure/storage/postgres/catalog_repo"
	"bartally/internal/infrastructure/storage/postgres/document_repo"
	"bartally/internal/infrastructure/storage/postgres/register_repo"
	"bartally/internal/infrastructure/storage/postgres/report_repo"
	"bartally/internal/metadata"
	"bartally/pkg/logger"
)

// RouterConfig holds router configuration for multi-tenant architecture.
type RouterConfig struct {
	// TenantManager manages database connections for all tenants
	TenantManager *tenant.Manager

	// MetaPool is connection to meta-database (for health checks)
	MetaPool *pgxpool.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Numerator for document number generation
	Numerator numerator.Generator

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// MetadataRegistry stores entity definitions
	MetadataRegistry *metadata.Registry

	// Cache serves per-tenant read models (the active item index for voice counting)
	Cache *cache.Registry

	// Flags gates feature-flagged surfaces per tenant
	Flags security.FeatureFlagProvider

	// BackdatePolicy rules on backdated ledger entries; nil accepts any date
	BackdatePolicy security.BackdatePolicy
}

// NewRouter creates and configures the Gin router for multi-tenant architecture.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandlerMultiTenant(cfg.MetaPool, cfg.TenantManager)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
		health.GET("/tenants", healthHandler.TenantsStats) // Admin endpoint for tenant stats
	}

	// The idempotency store is stateless: it resolves the tenant's TxManager
	// from the request context on every call.
	idemStore := postgres.NewIdempotencyStore(10 * time.Minute)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Auth routes - need TenantDB middleware BEFORE auth
		registerAuthRoutes(v1, cfg)

		// Ledger ingest accepts a service key OR a user token, so it carries
		// its own auth chain instead of the shared bearer-only one.
		registerIngestRoutes(v1, cfg, idemStore)

		// Protected endpoints - TenantDB runs first, then Auth
		protected := v1.Group("")
		protected.Use(middleware.TenantDB(cfg.TenantManager)) // 1. Resolve tenant, get DB pool
		protected.Use(middleware.Auth(cfg.JWTValidator))      // 2. Validate JWT
		protected.Use(middleware.UserContext())               // 3. Add UserID to context for domain layer

		// Apply idempotency middleware for mutating operations
		if cfg.IdempotencyEnabled {
			protected.Use(middleware.Idempotency(idemStore))
		}

		// Register entity routes
		registerCatalogRoutes(protected, cfg)
		if err := registerDocumentRoutes(protected, cfg); err != nil {
			return nil, err
		}
		registerRegisterRoutes(protected, cfg)
		if err := registerAlertRoutes(protected, cfg); err != nil {
			return nil, err
		}
		registerReportRoutes(protected, cfg)
		registerMetaRoutes(protected, cfg)
	}

	return router, nil
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	// Public auth endpoints (no JWT required, but need tenant for DB access)
	publicAuth := rg.Group("/auth")
	publicAuth.Use(middleware.TenantDB(cfg.TenantManager))

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.TenantDB(cfg.TenantManager))
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerIngestRoutes registers the ledger ingest endpoint. POS and
// purchasing systems authenticate with a service key; the bearer-token path
// stays available for manual corrections from the UI.
func registerIngestRoutes(rg *gin.RouterGroup, cfg RouterConfig, idemStore *postgres.IdempotencyStore) {
	baseHandler := handlers.NewBaseHandler()

	gate := period.NewGate(document_repo.NewPeriodRepo())
	service := ledger.NewService(register_repo.NewLedgerRepo(), gate, cfg.BackdatePolicy)
	handler := handlers.NewLedgerHandler(baseHandler, service)

	ingest := rg.Group("/registers/ledger")
	ingest.Use(middleware.TenantDB(cfg.TenantManager)) // Key table lives in the tenant DB
	ingest.Use(middleware.ServiceKeyAuth(postgres.NewServiceKeyStore(), middleware.Auth(cfg.JWTValidator)))
	ingest.Use(middleware.UserContext())
	if cfg.IdempotencyEnabled {
		ingest.Use(middleware.Idempotency(idemStore))
	}

	ingest.POST("/entries", handler.Ingest)
}

// registerCatalogRoutes registers catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	catalogs := rg.Group("/catalog")
	baseHandler := handlers.NewBaseHandler()

	// Note: Repos and services are created once but TxManager is obtained from context per-request

	// --- ITEMS ---
	{
		repo := catalog_repo.NewItemRepo()
		service := item.NewService(repo, cfg.Numerator)

		// Same-node item caches refresh immediately; other nodes catch the NOTIFY.
		if cfg.Cache != nil {
			invalidate := func(ctx context.Context, _ *item.Item) error {
				cfg.Cache.Invalidate(ctx)
				return nil
			}
			service.Hooks().OnAfterCreate(invalidate)
			service.Hooks().OnAfterUpdate(invalidate)
			service.Hooks().OnAfterDelete(invalidate)
		}

		handler := handlers.NewItemHandler(baseHandler, service)
		items := catalogs.Group("/items")
		RegisterCatalogRoutes(items, handler, "catalog:item")

		// Unit conversion preview sits next to the catalog entity it reads.
		convertHandler := handlers.NewItemConvertHandler(baseHandler, service, uom.NewRegistry())
		items.POST("/:id/convert", middleware.RequirePermission("catalog:item:read"), convertHandler.Convert)
	}

	// --- VENUES ---
	{
		repo := catalog_repo.NewVenueRepo()
		service := venue.NewService(repo, cfg.Numerator)
		handler := handlers.NewVenueHandler(baseHandler, service)
		RegisterCatalogRoutes(catalogs.Group("/venues"), handler, "catalog:venue")
	}

	// --- SUPPLIERS ---
	{
		repo := catalog_repo.NewSupplierRepo()
		service := supplier.NewService(repo, cfg.Numerator)
		handler := handlers.NewSupplierHandler(baseHandler, service)
		RegisterCatalogRoutes(catalogs.Group("/suppliers"), handler, "catalog:supplier")
	}
}

// registerDocumentRoutes registers period, stocktake and voice endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) error {
	docsGroup := rg.Group("/document")
	baseHandler := handlers.NewBaseHandler()

	// Shared graph: sheets pull ledger flows through the period gate, period
	// close freezes sheets. Services are stateless, so sharing them across
	// route groups is only a wiring convenience.
	registry := uom.NewRegistry()
	itemService := item.NewService(catalog_repo.NewItemRepo(), cfg.Numerator)
	venueService := venue.NewService(catalog_repo.NewVenueRepo(), cfg.Numerator)
	periodRepo := document_repo.NewPeriodRepo()
	gate := period.NewGate(periodRepo)
	ledgerService := ledger.NewService(register_repo.NewLedgerRepo(), gate, cfg.BackdatePolicy)
	stocktakeService := stocktake.NewService(
		document_repo.NewStocktakeRepo(),
		registry,
		itemService,
		venueService,
		gate,
		ledgerService,
		cfg.Numerator,
		nil, // TxManager from context
	)

	auditService, err := postgres.NewAuditService()
	if err != nil {
		return err
	}
	alertService, err := alerts.NewService(alert_repo.NewRuleRepo())
	if err != nil {
		return err
	}

	// --- STOCKTAKES ---
	{
		stocktakeService.Hooks().OnBeforeCreate(func(ctx context.Context, doc *stocktake.Stocktake) error {
			audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)
			return nil
		})

		handler := handlers.NewStocktakeHandler(baseHandler, stocktakeService)
		RegisterStocktakeRoutes(docsGroup.Group("/stocktakes"), handler, "document:stocktake")
	}

	// --- PERIODS ---
	{
		service := period.NewService(period.ServiceConfig{
			Repo:       periodRepo,
			Stocktakes: stocktakeService,
			Ledger:     ledgerService,
			Auditor:    auditService,
			Events:     postgres.NewOutboxPublisher(),
			Alerter:    alertService,
			Flags:      cfg.Flags,
		})
		handler := handlers.NewPeriodHandler(baseHandler, service, auditService)

		periods := docsGroup.Group("/periods")
		periods.GET("", middleware.RequirePermission("document:period:read"), handler.List)
		periods.POST("", middleware.RequirePermission("document:period:create"), handler.Create)
		periods.GET("/:id", middleware.RequirePermission("document:period:read"), handler.Get)
		periods.PUT("/:id", middleware.RequirePermission("document:period:update"), handler.Update)
		periods.PUT("/:id/override", middleware.RequirePermission("document:period:update"), handler.SetOverride)
		periods.POST("/:id/close", middleware.RequirePermission("document:period:close"), handler.Close)
		periods.POST("/:id/reopen", middleware.RequirePermission("document:period:close"), handler.Reopen)
		periods.GET("/:id/summary", middleware.RequirePermission("document:period:read"), handler.GetSummary)
		periods.GET("/:id/audit", middleware.RequirePermission("document:period:read"), handler.GetAudit)
	}

	// --- VOICE COUNTING ---
	{
		service := voice.NewService(stocktakeService, cfg.Cache)
		handler := handlers.NewVoiceHandler(baseHandler, service, cfg.Flags)
		rg.POST("/voice/commands", middleware.RequirePermission("document:stocktake:count"), handler.Apply)
	}

	return nil
}

// registerRegisterRoutes registers accumulation register endpoints.
func registerRegisterRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	registers := rg.Group("/registers")
	baseHandler := handlers.NewBaseHandler()

	// Ledger register (read side; ingest carries its own auth chain)
	{
		gate := period.NewGate(document_repo.NewPeriodRepo())
		service := ledger.NewService(register_repo.NewLedgerRepo(), gate, cfg.BackdatePolicy)
		handler := handlers.NewLedgerHandler(baseHandler, service)

		ledgerGroup := registers.Group("/ledger")
		ledgerGroup.GET("/totals", middleware.RequirePermission("register:ledger:read"), handler.GetTotals)
		ledgerGroup.GET("/entries", middleware.RequirePermission("register:ledger:read"), handler.ListEntries)
	}
}

// registerAlertRoutes registers variance alert rule endpoints.
func registerAlertRoutes(rg *gin.RouterGroup, cfg RouterConfig) error {
	service, err := alerts.NewService(alert_repo.NewRuleRepo())
	if err != nil {
		return err
	}
	handler := handlers.NewAlertsHandler(handlers.NewBaseHandler(), service)

	rules := rg.Group("/alerts/rules")
	rules.GET("", middleware.RequirePermission("alerts:rule:read"), handler.List)
	rules.POST("", middleware.RequirePermission("alerts:rule:create"), handler.Create)
	rules.POST("/check", middleware.RequirePermission("alerts:rule:read"), handler.CheckExpression)
	rules.GET("/:id", middleware.RequirePermission("alerts:rule:read"), handler.Get)
	rules.PUT("/:id", middleware.RequirePermission("alerts:rule:update"), handler.Update)
	rules.DELETE("/:id", middleware.RequirePermission("alerts:rule:delete"), handler.Delete)
	return nil
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	reportsGroup := rg.Group("/reports")
	reportsGroup.Use(middleware.RequirePermission("report:stocktake:read"))

	service := reports.NewService(report_repo.NewReportRepo(), cfg.Flags)
	handler := handlers.NewReportsHandler(handlers.NewBaseHandler(), service)
	handler.RegisterRoutes(reportsGroup)
}

// registerMetaRoutes registers metadata/schema endpoints.
func registerMetaRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.MetadataRegistry == nil {
		return
	}

	handler := handlers.NewMetadataHandler(cfg.MetadataRegistry)
	meta := rg.Group("/meta")
	{
		meta.GET("", handler.ListEntities)
		meta.GET("/:name", handler.GetEntity)
	}
}
