// Package reports provides read-side report generation over closed and
// in-progress stock periods.
package reports

import (
	"time"

	"bartally/internal/core/id"
)

// --- Category Breakdown ---

// CategoryBreakdownFilter defines filter for the category breakdown report.
type CategoryBreakdownFilter struct {
	// PeriodID - the period whose count sheet is broken down (required)
	PeriodID id.ID

	// Include rows for categories where nothing was counted yet
	IncludeUncounted bool
}

// CategoryBreakdownItem represents one category row of the breakdown.
//
// Values are reporting floats: the authoritative decimal math lives on the
// stocktake lines, the report only displays aggregates.
type CategoryBreakdownItem struct {
	Category      string  `json:"category"`
	LineCount     int     `json:"lineCount"`
	CountedLines  int     `json:"countedLines"`
	CountedValue  float64 `json:"countedValue"`
	VarianceValue float64 `json:"varianceValue"`
}

// CategoryBreakdown represents the full per-category report of a period.
type CategoryBreakdown struct {
	PeriodID   id.ID                   `json:"periodId"`
	Items      []CategoryBreakdownItem `json:"items"`
	TotalItems int                     `json:"totalItems"`

	// Summary
	TotalCountedValue  float64 `json:"totalCountedValue"`
	TotalVarianceValue float64 `json:"totalVarianceValue"`
}

// --- Variance Trend ---

// VarianceTrendFilter defines filter for the variance trend report.
type VarianceTrendFilter struct {
	// VenueID - bar whose closed periods are charted (required)
	VenueID id.ID

	// ItemID narrows the trend to a single item; nil charts venue totals
	ItemID *id.ID

	// Periods - number of most recent closed periods to include
	Periods int
}

// VarianceTrendPoint represents one closed period on the trend.
type VarianceTrendPoint struct {
	PeriodID      id.ID     `json:"periodId"`
	PeriodName    string    `json:"periodName"`
	EndDate       time.Time `json:"endDate"`
	CountedValue  float64   `json:"countedValue"`
	VarianceValue float64   `json:"varianceValue"`
	// VarianceQty is only meaningful when ItemID is set; summing raw
	// quantities across categories mixes bottles with kilograms.
	VarianceQty float64 `json:"varianceQty,omitempty"`
}

// VarianceTrend represents the variance history of a venue or item.
type VarianceTrend struct {
	VenueID id.ID  `json:"venueId"`
	ItemID  *id.ID `json:"itemId,omitempty"`

	// Points are ordered oldest first so they chart left to right.
	Points     []VarianceTrendPoint `json:"points"`
	TotalItems int                  `json:"totalItems"`
}

// --- Stocktake Journal ---

// StocktakeJournalFilter defines filter for the stocktake journal.
type StocktakeJournalFilter struct {
	// Period
	FromDate *time.Time
	ToDate   *time.Time

	// Filters by references
	VenueIDs  []id.ID
	PeriodIDs []id.ID

	// Status filter
	Approved *bool

	// Search by number
	NumberContains string

	// Sorting
	SortBy    string // "date", "number", "variance"
	SortOrder string // "asc", "desc"

	// Pagination
	Limit  int
	Offset int
}

// StocktakeJournalItem represents a count sheet in the journal.
type StocktakeJournalItem struct {
	ID       id.ID     `json:"id"`
	Number   string    `json:"number"`
	Date     time.Time `json:"date"`
	Approved bool      `json:"approved"`

	// Venue info
	VenueID   id.ID  `json:"venueId"`
	VenueName string `json:"venueName"`

	// Period info
	PeriodID   id.ID  `json:"periodId"`
	PeriodName string `json:"periodName"`

	// Progress and totals
	TotalLines         int     `json:"totalLines"`
	CountedLines       int     `json:"countedLines"`
	TotalCountedValue  float64 `json:"totalCountedValue"`
	TotalVarianceValue float64 `json:"totalVarianceValue"`

	DeletionMark bool      `json:"deletionMark"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StocktakeJournal represents the stocktake journal result.
type StocktakeJournal struct {
	Items      []StocktakeJournalItem `json:"items"`
	TotalCount int                    `json:"totalCount"`
	Limit      int                    `json:"limit"`
	Offset     int                    `json:"offset"`

	// Summary by venue
	Summary []VenueSummary `json:"summary,omitempty"`
}

// VenueSummary provides counts and variance totals per venue.
type VenueSummary struct {
	VenueID            id.ID   `json:"venueId"`
	VenueName          string  `json:"venueName"`
	Count              int     `json:"count"`
	ApprovedCount      int     `json:"approvedCount"`
	TotalVarianceValue float64 `json:"totalVarianceValue"`
}
