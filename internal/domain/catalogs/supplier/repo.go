package supplier

import (
	"context"

	"bartally/internal/domain"
)

// Repository defines the interface for Supplier persistence.
type Repository interface {
	domain.CatalogRepository[*Supplier]

	// FindByVATNumber retrieves a supplier by VAT registration.
	FindByVATNumber(ctx context.Context, vat string) (*Supplier, error)
}
