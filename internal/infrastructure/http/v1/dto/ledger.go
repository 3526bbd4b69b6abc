package dto

import (
	"time"

	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/core/types"
	"bartally/internal/domain/registers/ledger"
)

// LedgerEntryRequest is one collaborator record on the wire. Quantity is in
// canonical servings, Amount in minor currency units.
type LedgerEntryRequest struct {
	Kind       entity.LedgerKind `json:"kind" binding:"required"`
	VenueID    string            `json:"venueId" binding:"required,uuid"`
	ItemID     string            `json:"itemId" binding:"required,uuid"`
	SupplierID *string           `json:"supplierId" binding:"omitempty,uuid"`
	Quantity   types.Quantity    `json:"quantity"`
	Amount     types.MinorUnits  `json:"amount"`
	OccurredAt time.Time         `json:"occurredAt" binding:"required"`
	SourceRef  string            `json:"sourceRef" binding:"required"`
}

// LedgerIngestRequest is a collaborator batch. SourceSystem may be omitted
// when the caller authenticated with a service key; the key names the system.
type LedgerIngestRequest struct {
	SourceSystem string               `json:"sourceSystem"`
	Entries      []LedgerEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// ToBatch converts wire entries into the ingest form.
func (r *LedgerIngestRequest) ToBatch() ([]ledger.IngestEntry, error) {
	batch := make([]ledger.IngestEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		venueID, err := id.Parse(e.VenueID)
		if err != nil {
			return nil, err
		}
		itemID, err := id.Parse(e.ItemID)
		if err != nil {
			return nil, err
		}
		batch = append(batch, ledger.IngestEntry{
			Kind:       e.Kind,
			VenueID:    venueID,
			ItemID:     itemID,
			SupplierID: parseOptionalID(e.SupplierID),
			Quantity:   e.Quantity,
			Amount:     e.Amount,
			OccurredAt: e.OccurredAt,
			SourceRef:  e.SourceRef,
		})
	}
	return batch, nil
}

// LedgerTotalsQuery filters the totals endpoint.
type LedgerTotalsQuery struct {
	PeriodID string `form:"period_id" binding:"required,uuid"`
}

// LedgerTotalsResponse reports summed amounts for one period.
type LedgerTotalsResponse struct {
	PeriodID string             `json:"periodId"`
	Totals   entity.LedgerTotals `json:"totals"`
}

// LedgerEntriesQuery filters the raw entry listing.
type LedgerEntriesQuery struct {
	PeriodID string  `form:"period_id" binding:"required,uuid"`
	ItemID   *string `form:"item_id" binding:"omitempty,uuid"`
	Kind     *string `form:"kind"`
	FromDate *string `form:"from_date"`
	ToDate   *string `form:"to_date"`
	Limit    int     `form:"limit"`
	Offset   int     `form:"offset"`
}

// LedgerEntriesResponse wraps raw ledger records.
type LedgerEntriesResponse struct {
	Items  []entity.LedgerEntry `json:"items"`
	Count  int                  `json:"count"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}
