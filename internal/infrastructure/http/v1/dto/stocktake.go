package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"bartally/internal/core/types"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/domain/uom"
)

// --- Request DTOs ---

// OpenStocktakeRequest opens the counting sheet for a period and venue.
type OpenStocktakeRequest struct {
	PeriodID string `json:"periodId" binding:"required,uuid"`
	VenueID  string `json:"venueId" binding:"required,uuid"`
}

// RecordCountRequest is one physical count for a line: full containers plus
// a partial in the scheme's own terms (shots, bottles, ml).
type RecordCountRequest struct {
	Full    decimal.Decimal `json:"full"`
	Partial decimal.Decimal `json:"partial"`
}

// LineOverrideRequest sets or clears a line-level manual monetary figure.
// A null amount clears the override.
type LineOverrideRequest struct {
	Kind   stocktake.OverrideKind `json:"kind" binding:"required"`
	Amount *types.MinorUnits      `json:"amount"`
}

// --- Response DTOs ---

// StocktakeLineResponse is one line of the counting sheet.
type StocktakeLineResponse struct {
	LineID   string       `json:"lineId"`
	LineNo   int          `json:"lineNo"`
	ItemID   string       `json:"itemId"`
	ItemName string       `json:"itemName"`
	Category uom.Category `json:"category"`

	Scheme            uom.Scheme      `json:"scheme"`
	UnitsPerContainer int64           `json:"unitsPerContainer"`
	ContainerML       decimal.Decimal `json:"containerMl"`
	ServingML         decimal.Decimal `json:"servingMl"`
	UnitCost          types.MinorUnits `json:"unitCost"`

	OpeningFull    decimal.Decimal `json:"openingFull"`
	OpeningPartial decimal.Decimal `json:"openingPartial"`
	OpeningQty     types.Quantity  `json:"openingQty"`

	CountedFull    decimal.Decimal       `json:"countedFull"`
	CountedPartial decimal.Decimal       `json:"countedPartial"`
	Counted        bool                  `json:"counted"`
	CountedAt      *time.Time            `json:"countedAt,omitempty"`
	CountedBy      *string               `json:"countedBy,omitempty"`
	CountSource    stocktake.CountSource `json:"countSource,omitempty"`

	PurchasesOverride *types.MinorUnits `json:"purchasesOverride,omitempty"`
	WasteOverride     *types.MinorUnits `json:"wasteOverride,omitempty"`
	SalesOverride     *types.MinorUnits `json:"salesOverride,omitempty"`

	PurchasedQty types.Quantity `json:"purchasedQty"`
	WastedQty    types.Quantity `json:"wastedQty"`
	SoldQty      types.Quantity `json:"soldQty"`

	CountedQty    types.Quantity `json:"countedQty"`
	ExpectedQty   types.Quantity `json:"expectedQty"`
	VarianceQty   types.Quantity `json:"varianceQty"`
	CountedValue  types.Money    `json:"countedValue"`
	VarianceValue types.Money    `json:"varianceValue"`
}

// StocktakeResponse is the response body for a stocktake document.
type StocktakeResponse struct {
	ID       string    `json:"id"`
	Number   string    `json:"number"`
	Date     time.Time `json:"date"`
	PeriodID string    `json:"periodId"`
	VenueID  string    `json:"venueId"`

	Approved        bool `json:"approved"`
	ApprovedVersion int  `json:"approvedVersion"`

	TotalCountedValue  types.Money `json:"totalCountedValue"`
	TotalVarianceValue types.Money `json:"totalVarianceValue"`
	CountedLines       int         `json:"countedLines"`
	TotalLines         int         `json:"totalLines"`

	FrozenCOGS           *types.Money `json:"frozenCogs,omitempty"`
	FrozenRevenue        *types.Money `json:"frozenRevenue,omitempty"`
	FrozenGrossProfit    *types.Money `json:"frozenGrossProfit,omitempty"`
	FrozenGrossProfitPct *types.Money `json:"frozenGrossProfitPct,omitempty"`
	FrozenPourCostPct    *types.Money `json:"frozenPourCostPct,omitempty"`
	FrozenCogsSource     *string      `json:"frozenCogsSource,omitempty"`
	FrozenRevenueSource  *string      `json:"frozenRevenueSource,omitempty"`

	Comment      string    `json:"comment,omitempty"`
	DeletionMark bool      `json:"deletionMark"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Lines []StocktakeLineResponse `json:"lines"`
}

// StocktakeListResponse wraps a stocktake list with pagination.
type StocktakeListResponse struct {
	Items      []*StocktakeResponse `json:"items"`
	TotalCount int                  `json:"totalCount"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}

// FromStocktake creates response DTO from domain entity.
func FromStocktake(doc *stocktake.Stocktake) *StocktakeResponse {
	resp := &StocktakeResponse{
		ID:                   doc.ID.String(),
		Number:               doc.Number,
		Date:                 doc.Date,
		PeriodID:             doc.PeriodID.String(),
		VenueID:              doc.VenueID.String(),
		Approved:             doc.Approved,
		ApprovedVersion:      doc.ApprovedVersion,
		TotalCountedValue:    doc.TotalCountedValue,
		TotalVarianceValue:   doc.TotalVarianceValue,
		CountedLines:         doc.CountedLines,
		TotalLines:           doc.TotalLines(),
		FrozenCOGS:           doc.FrozenCOGS,
		FrozenRevenue:        doc.FrozenRevenue,
		FrozenGrossProfit:    doc.FrozenGrossProfit,
		FrozenGrossProfitPct: doc.FrozenGrossProfitPct,
		FrozenPourCostPct:    doc.FrozenPourCostPct,
		FrozenCogsSource:     doc.FrozenCogsSource,
		FrozenRevenueSource:  doc.FrozenRevenueSource,
		Comment:              doc.Comment,
		DeletionMark:         doc.DeletionMark,
		Version:              doc.Version,
		CreatedAt:            doc.CreatedAt,
		UpdatedAt:            doc.UpdatedAt,
	}

	resp.Lines = make([]StocktakeLineResponse, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]
		resp.Lines[i] = StocktakeLineResponse{
			LineID:            line.LineID.String(),
			LineNo:            line.LineNo,
			ItemID:            line.ItemID.String(),
			ItemName:          line.ItemName,
			Category:          line.Category,
			Scheme:            line.Scheme,
			UnitsPerContainer: line.UnitsPerContainer,
			ContainerML:       line.ContainerML,
			ServingML:         line.ServingML,
			UnitCost:          line.UnitCost,
			OpeningFull:       line.OpeningFull,
			OpeningPartial:    line.OpeningPartial,
			OpeningQty:        line.OpeningQty,
			CountedFull:       line.CountedFull,
			CountedPartial:    line.CountedPartial,
			Counted:           line.Counted,
			CountedAt:         line.CountedAt,
			CountedBy:         line.CountedBy,
			CountSource:       line.CountSource,
			PurchasesOverride: line.PurchasesOverride,
			WasteOverride:     line.WasteOverride,
			SalesOverride:     line.SalesOverride,
			PurchasedQty:      line.PurchasedQty,
			WastedQty:         line.WastedQty,
			SoldQty:           line.SoldQty,
			CountedQty:        line.CountedQty,
			ExpectedQty:       line.ExpectedQty,
			VarianceQty:       line.VarianceQty,
			CountedValue:      line.CountedValue,
			VarianceValue:     line.VarianceValue,
		}
	}
	return resp
}
