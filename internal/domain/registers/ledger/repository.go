// Package ledger provides the consumption ledger register: the automatic
// purchase/waste/sale records that feed expected quantities and the
// reconciliation cascade's fallback tier.
package ledger

import (
	"context"
	"time"

	"bartally/internal/core/entity"
	"bartally/internal/core/id"
)

// Repository defines operations for the consumption ledger.
type Repository interface {
	// InsertEntries batch inserts records. Records whose (source_system,
	// source_ref) pair is already present are skipped, so re-delivered
	// collaborator batches are harmless. Returns the inserted count.
	InsertEntries(ctx context.Context, entries []entity.LedgerEntry) (int, error)

	// PeriodTotals sums amounts per kind for one period.
	PeriodTotals(ctx context.Context, periodID id.ID) (entity.LedgerTotals, error)

	// ItemFlows sums quantities per item for one period.
	ItemFlows(ctx context.Context, periodID id.ID) ([]entity.ItemFlow, error)

	// ListByPeriod retrieves raw records for inspection.
	ListByPeriod(ctx context.Context, periodID id.ID, filter EntryFilter) ([]entity.LedgerEntry, error)
}

// EntryFilter for filtering ledger records.
type EntryFilter struct {
	ItemID   *id.ID
	Kind     *entity.LedgerKind
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
