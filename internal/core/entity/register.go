// Package entity provides core domain entities.
package entity

import (
	"time"

	"bartally/internal/core/id"
	"bartally/internal/core/types"
)

// LedgerKind classifies consumption ledger records.
type LedgerKind string

const (
	// LedgerKindPurchase increases stock (goods received from a supplier)
	LedgerKindPurchase LedgerKind = "purchase"
	// LedgerKindWaste decreases stock (breakage, spillage, spoilage)
	LedgerKindWaste LedgerKind = "waste"
	// LedgerKindSale decreases stock (POS-recorded sales)
	LedgerKindSale LedgerKind = "sale"
)

// Valid reports whether the kind is one of the known ledger kinds.
func (k LedgerKind) Valid() bool {
	switch k {
	case LedgerKindPurchase, LedgerKindWaste, LedgerKindSale:
		return true
	}
	return false
}

// EntryBase contains common fields for all ledger records.
// Records are immutable once ingested - corrections arrive as new records
// with negative resources, never as updates.
type EntryBase struct {
	// LineID is unique identifier for this record (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// SourceSystem names the collaborator that produced the record
	// (e.g., "pos", "purchasing", "manual")
	SourceSystem string `db:"source_system" json:"sourceSystem"`

	// SourceRef is the collaborator's own reference (receipt no, invoice no).
	// Together with SourceSystem it deduplicates re-delivered batches.
	SourceRef string `db:"source_ref" json:"sourceRef"`

	// OccurredAt is the business timestamp of the record
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`

	// Kind: purchase, waste or sale
	Kind LedgerKind `db:"kind" json:"kind"`

	// CreatedAt is when the record was ingested
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewEntryBase creates a new entry base with generated LineID.
func NewEntryBase(sourceSystem, sourceRef string, occurredAt time.Time, kind LedgerKind) EntryBase {
	return EntryBase{
		LineID:       id.New(),
		SourceSystem: sourceSystem,
		SourceRef:    sourceRef,
		OccurredAt:   occurredAt,
		Kind:         kind,
		CreatedAt:    time.Now().UTC(),
	}
}

// LedgerEntry represents a record in the consumption ledger.
// Tracks purchases, waste and sales per venue and item.
//
// The owning period is resolved once at ingest (from the record's venue and
// business timestamp) and stamped directly; aggregation never joins entries
// to periods by date range.
type LedgerEntry struct {
	EntryBase
	PeriodAware

	// Dimensions
	VenueID    id.ID  `db:"venue_id" json:"venueId"`
	ItemID     id.ID  `db:"item_id" json:"itemId"`
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	// Resources. Quantity is canonical servings; Amount arrives from machine
	// collaborators in minor currency units (cents).
	Quantity types.Quantity   `db:"quantity" json:"quantity"`
	Amount   types.MinorUnits `db:"amount" json:"amount"`
}

// NewLedgerEntry creates a new consumption ledger record.
func NewLedgerEntry(
	sourceSystem, sourceRef string,
	occurredAt time.Time,
	kind LedgerKind,
	periodID, venueID, itemID id.ID,
	quantity types.Quantity,
	amount types.MinorUnits,
) LedgerEntry {
	return LedgerEntry{
		EntryBase:   NewEntryBase(sourceSystem, sourceRef, occurredAt, kind),
		PeriodAware: PeriodAware{PeriodID: periodID},
		VenueID:     venueID,
		ItemID:      itemID,
		Quantity:    quantity,
		Amount:      amount,
	}
}

// SignedQuantity returns quantity with sign based on kind.
// Purchase = positive, waste and sale = negative.
func (e *LedgerEntry) SignedQuantity() types.Quantity {
	if e.Kind == LedgerKindWaste || e.Kind == LedgerKindSale {
		return e.Quantity.Neg()
	}
	return e.Quantity
}

// LedgerTotals aggregates ledger resources over a date range.
// This is the automatic tier of the reconciliation cascade.
type LedgerTotals struct {
	PurchasesAmount types.MinorUnits `db:"purchases_amount" json:"purchasesAmount"`
	WasteAmount     types.MinorUnits `db:"waste_amount" json:"wasteAmount"`
	SalesAmount     types.MinorUnits `db:"sales_amount" json:"salesAmount"`
	EntryCount      int64            `db:"entry_count" json:"entryCount"`
}

// HasEntries reports whether any ledger records exist in the range.
func (t LedgerTotals) HasEntries() bool {
	return t.EntryCount > 0
}

// ItemFlow aggregates per-item ledger quantities over a date range.
// Feeds expected-quantity derivation on stocktake lines.
type ItemFlow struct {
	ItemID       id.ID          `db:"item_id" json:"itemId"`
	PurchasedQty types.Quantity `db:"purchased_qty" json:"purchasedQty"`
	WastedQty    types.Quantity `db:"wasted_qty" json:"wastedQty"`
	SoldQty      types.Quantity `db:"sold_qty" json:"soldQty"`
}
