package stocktake

import (
	"context"
	"time"

	"bartally/internal/core/id"
	"bartally/internal/domain"
)

// Repository defines storage operations for stocktake documents.
type Repository interface {
	Create(ctx context.Context, doc *Stocktake) error
	GetByID(ctx context.Context, docID id.ID) (*Stocktake, error)
	Update(ctx context.Context, doc *Stocktake) error
	Delete(ctx context.Context, docID id.ID) error

	// GetForUpdate loads the document header with a row lock, serializing
	// concurrent count and approval writes against the same sheet.
	GetForUpdate(ctx context.Context, docID id.ID) (*Stocktake, error)

	// GetByPeriod loads the period's sheet; apperror.CodeNotFound when the
	// period has none yet.
	GetByPeriod(ctx context.Context, periodID id.ID) (*Stocktake, error)
	GetByPeriodForUpdate(ctx context.Context, periodID id.ID) (*Stocktake, error)
	ExistsForPeriod(ctx context.Context, periodID id.ID) (bool, error)

	// GetPreviousApproved returns the venue's most recent approved sheet
	// dated before the given time. Used to seed opening counts.
	GetPreviousApproved(ctx context.Context, venueID id.ID, before time.Time) (*Stocktake, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Stocktake], error)
}

// ListFilter for filtering stocktakes.
type ListFilter struct {
	domain.ListFilter

	VenueID  *id.ID
	PeriodID *id.ID
	Approved *bool
	DateFrom *time.Time
	DateTo   *time.Time
}
