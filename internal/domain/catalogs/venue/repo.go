package venue

import (
	"context"

	"bartally/internal/core/id"
	"bartally/internal/domain"
)

// Repository defines the interface for Venue persistence.
type Repository interface {
	domain.CatalogRepository[*Venue]

	// GetForUpdate retrieves a venue with row lock (for transactional updates).
	GetForUpdate(ctx context.Context, id id.ID) (*Venue, error)

	// ClearDefault clears the default flag on all venues (before setting a new default).
	ClearDefault(ctx context.Context) error
}
