// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"bartally/internal/infrastructure/http/v1/middleware"
)

// CatalogRouteHandler defines the interface for catalog handlers.
// All catalog handlers must implement these methods.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	SetDeletionMark(c *gin.Context)
	GetTree(c *gin.Context)
}

// StocktakeRouteHandler defines the interface for counting sheet handlers.
type StocktakeRouteHandler interface {
	List(c *gin.Context)
	Open(c *gin.Context)
	Get(c *gin.Context)
	Delete(c *gin.Context)
	RecordCount(c *gin.Context)
	SetLineOverride(c *gin.Context)
	Approve(c *gin.Context)
	Unapprove(c *gin.Context)
	Recalculate(c *gin.Context)
	GetVariance(c *gin.Context)
}

// RegisterCatalogRoutes registers standard CRUD routes for a catalog.
// This eliminates the need to manually wire up routes for each catalog.
//
// Usage:
//
//	repo := catalog_repo.NewSupplierRepo()
//	service := supplier.NewService(repo, cfg.Numerator)
//	handler := handlers.NewSupplierHandler(baseHandler, service)
//	RegisterCatalogRoutes(catalogs.Group("/suppliers"), handler, "catalog:supplier")
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, permission string) {
	group.GET("", middleware.RequirePermission(permission+":read"), handler.List)
	group.POST("", middleware.RequirePermission(permission+":create"), handler.Create)
	group.GET("/:id", middleware.RequirePermission(permission+":read"), handler.Get)
	group.PUT("/:id", middleware.RequirePermission(permission+":update"), handler.Update)
	group.DELETE("/:id", middleware.RequirePermission(permission+":delete"), handler.Delete)
	group.POST("/:id/deletion-mark", middleware.RequirePermission(permission+":delete"), handler.SetDeletionMark)
	group.GET("/tree", middleware.RequirePermission(permission+":read"), handler.GetTree)
}

// RegisterStocktakeRoutes registers the counting sheet routes: sheet
// lifecycle, per-line counts and overrides, approval and the variance view.
func RegisterStocktakeRoutes(group *gin.RouterGroup, handler StocktakeRouteHandler, permission string) {
	group.GET("", middleware.RequirePermission(permission+":read"), handler.List)
	group.POST("", middleware.RequirePermission(permission+":create"), handler.Open)
	group.GET("/:id", middleware.RequirePermission(permission+":read"), handler.Get)
	group.DELETE("/:id", middleware.RequirePermission(permission+":delete"), handler.Delete)
	group.PUT("/:id/lines/:lineId/count", middleware.RequirePermission(permission+":count"), handler.RecordCount)
	group.PUT("/:id/lines/:lineId/override", middleware.RequirePermission(permission+":override"), handler.SetLineOverride)
	group.POST("/:id/approve", middleware.RequirePermission(permission+":approve"), handler.Approve)
	group.POST("/:id/unapprove", middleware.RequirePermission(permission+":approve"), handler.Unapprove)
	group.POST("/:id/recalculate", middleware.RequirePermission(permission+":update"), handler.Recalculate)
	group.GET("/:id/variance", middleware.RequirePermission(permission+":read"), handler.GetVariance)
}
