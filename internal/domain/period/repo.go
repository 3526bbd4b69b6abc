package period

import (
	"context"
	"time"

	"bartally/internal/core/id"
	"bartally/internal/domain"
)

// Repository defines operations for stock periods.
type Repository interface {
	Create(ctx context.Context, p *Period) error
	GetByID(ctx context.Context, periodID id.ID) (*Period, error)
	Update(ctx context.Context, p *Period) error

	// GetForUpdate locks the period row. Lifecycle transitions and override
	// writes take this lock; concurrent transitions serialize on it.
	GetForUpdate(ctx context.Context, periodID id.ID) (*Period, error)

	// GetForShare takes a shared lock on the period row. Count mutations hold
	// it so a close cannot slide under them mid-transaction (lock ordering:
	// period before lines).
	GetForShare(ctx context.Context, periodID id.ID) (*Period, error)

	// FindActiveAt resolves the period window covering a business timestamp
	// for a venue. Used once at ledger ingest to stamp the owning period.
	FindActiveAt(ctx context.Context, venueID id.ID, at time.Time) (*Period, error)

	// HasOverlapping reports whether another period of the venue overlaps
	// the [start, end] window.
	HasOverlapping(ctx context.Context, venueID id.ID, start, end time.Time, excludeID id.ID) (bool, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Period], error)
}

// ListFilter for filtering periods.
type ListFilter struct {
	domain.ListFilter

	VenueID  *id.ID
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time
}
