package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"bartally/internal/domain/catalogs/venue"
	"bartally/internal/infrastructure/storage/postgres"
)

const venueTable = "cat_venues"

// VenueRepo implements venue.Repository.
type VenueRepo struct {
	*BaseCatalogRepo[*venue.Venue]
}

// NewVenueRepo creates a new venue repository.
func NewVenueRepo() *VenueRepo {
	return &VenueRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*venue.Venue](
			venueTable,
			postgres.ExtractDBColumns[venue.Venue](),
			func() *venue.Venue { return &venue.Venue{} },
		),
	}
}

// ClearDefault clears the default flag on all venues.
// Called inside the same transaction that promotes the new default.
func (r *VenueRepo) ClearDefault(ctx context.Context) error {
	q := r.Builder().
		Update(venueTable).
		Set("is_default", false).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"is_default": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build clear default: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear default venue: %w", err)
	}

	return nil
}

var _ venue.Repository = (*VenueRepo)(nil)
