package item

import (
	"context"

	"bartally/internal/core/id"
	"bartally/internal/domain"
)

// Repository defines the interface for Item persistence.
type Repository interface {
	domain.CatalogRepository[*Item]

	// FindBySKU retrieves an item by SKU.
	FindBySKU(ctx context.Context, sku string) (*Item, error)

	// FindByBarcode retrieves an item by barcode.
	FindByBarcode(ctx context.Context, barcode string) (*Item, error)

	// GetForUpdate retrieves an item with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Item, error)

	// ListActive retrieves all active non-folder items. Feeds the stocktake
	// sheet seeder and the voice resolver index.
	ListActive(ctx context.Context) ([]*Item, error)

	// FindByCategory retrieves items of one category.
	FindByCategory(ctx context.Context, category string, filter domain.ListFilter) (domain.ListResult[*Item], error)
}
