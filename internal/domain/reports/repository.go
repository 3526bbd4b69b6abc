package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// Variance analytics
	GetCategoryBreakdown(ctx context.Context, filter CategoryBreakdownFilter) (*CategoryBreakdown, error)
	GetVarianceTrend(ctx context.Context, filter VarianceTrendFilter) (*VarianceTrend, error)

	// Stocktake journal
	GetStocktakeJournal(ctx context.Context, filter StocktakeJournalFilter) (*StocktakeJournal, error)
	GetVenueSummary(ctx context.Context, filter StocktakeJournalFilter) ([]VenueSummary, error)
}
