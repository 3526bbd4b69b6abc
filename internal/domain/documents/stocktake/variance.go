package stocktake

import (
	"context"

	"github.com/shopspring/decimal"

	"bartally/internal/core/id"
	"bartally/internal/core/types"
	"bartally/internal/domain/uom"
)

// VarianceReport compares expected against counted stock per line.
type VarianceReport struct {
	StocktakeID id.ID `json:"stocktakeId"`
	PeriodID    id.ID `json:"periodId"`
	VenueID     id.ID `json:"venueId"`
	Approved    bool  `json:"approved"`

	TotalCountedValue  types.Money `json:"totalCountedValue"`
	TotalVarianceValue types.Money `json:"totalVarianceValue"`
	CountedLines       int         `json:"countedLines"`
	TotalLines         int         `json:"totalLines"`

	Lines []VarianceLine `json:"lines"`
}

// VarianceLine is one item's expected-versus-counted comparison.
// VariancePct is nil when the expected quantity is zero.
type VarianceLine struct {
	LineID   id.ID        `json:"lineId"`
	ItemID   id.ID        `json:"itemId"`
	ItemName string       `json:"itemName"`
	Category uom.Category `json:"category"`
	Counted  bool         `json:"counted"`

	ExpectedQty     types.Quantity `json:"expectedQty"`
	CountedQty      types.Quantity `json:"countedQty"`
	VarianceQty     types.Quantity `json:"varianceQty"`
	VarianceDisplay uom.Display    `json:"varianceDisplay"`
	VariancePct     *types.Money   `json:"variancePct,omitempty"`

	CountedValue  types.Money `json:"countedValue"`
	VarianceValue types.Money `json:"varianceValue"`
}

// GetVariance builds the variance report for a stocktake. Figures come from
// the stored lines; call Recalculate first for register-fresh numbers.
func (s *Service) GetVariance(ctx context.Context, docID id.ID) (*VarianceReport, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	report := &VarianceReport{
		StocktakeID:        doc.ID,
		PeriodID:           doc.PeriodID,
		VenueID:            doc.VenueID,
		Approved:           doc.Approved,
		TotalCountedValue:  doc.TotalCountedValue,
		TotalVarianceValue: doc.TotalVarianceValue,
		CountedLines:       doc.CountedLines,
		TotalLines:         doc.TotalLines(),
		Lines:              make([]VarianceLine, 0, len(doc.Lines)),
	}

	for i := range doc.Lines {
		l := &doc.Lines[i]

		display, err := s.registry.ToDisplay(l.Measure(), l.VarianceQty.Decimal())
		if err != nil {
			return nil, err
		}

		vl := VarianceLine{
			LineID:          l.LineID,
			ItemID:          l.ItemID,
			ItemName:        l.ItemName,
			Category:        l.Category,
			Counted:         l.Counted,
			ExpectedQty:     l.ExpectedQty,
			CountedQty:      l.CountedQty,
			VarianceQty:     l.VarianceQty,
			VarianceDisplay: display,
			CountedValue:    l.CountedValue,
			VarianceValue:   l.VarianceValue,
		}
		if l.Counted && !l.ExpectedQty.IsZero() {
			pct := l.VarianceQty.Decimal().
				Div(l.ExpectedQty.Decimal()).
				Mul(decimal.NewFromInt(100)).
				Round(2)
			vl.VariancePct = &pct
		}
		report.Lines = append(report.Lines, vl)
	}

	return report, nil
}
