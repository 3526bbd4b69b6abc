package main

import (
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/catalogs/supplier"
	"bartally/internal/domain/catalogs/venue"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/domain/period"
	"bartally/internal/metadata"
)

// setupMetadataRegistry initializes and populates the metadata registry.
func setupMetadataRegistry() *metadata.Registry {
	reg := metadata.NewRegistry()

	// Helper to register entity with a display label
	register := func(entity interface{}, name string, typ metadata.EntityType, label string) {
		def := metadata.Inspect(entity, name, typ)
		def.Label = label

		// Field labels fall back to Inspect's auto-guessing from field names.

		reg.Register(def)
	}

	// --- Catalogs ---
	register(item.Item{}, "Item", metadata.TypeCatalog, "Stock Items")
	register(venue.Venue{}, "Venue", metadata.TypeCatalog, "Venues")
	register(supplier.Supplier{}, "Supplier", metadata.TypeCatalog, "Suppliers")

	// --- Documents ---
	register(stocktake.Stocktake{}, "Stocktake", metadata.TypeDocument, "Count Sheets")
	register(period.Period{}, "Period", metadata.TypeDocument, "Stock Periods")

	return reg
}
