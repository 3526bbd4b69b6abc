// Package stocktake provides the stocktake document: one counting sheet per
// period and venue. Lines hold raw counts plus conversion metadata
// snapshotted from the catalog; every derived figure on a line is recomputed
// from those raw inputs, never hand-edited.
package stocktake

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/core/types"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/uom"
)

// CountSource records which entry path produced a count.
type CountSource string

const (
	SourceManual CountSource = "manual"
	SourceVoice  CountSource = "voice"
)

// OverrideKind selects which line-level manual figure an override sets.
type OverrideKind string

const (
	OverridePurchases OverrideKind = "purchases"
	OverrideWaste     OverrideKind = "waste"
	OverrideSales     OverrideKind = "sales"
)

// currencyExponent is the minor-unit exponent used for line money snapshots.
const currencyExponent = 2

// Stocktake represents the counting sheet for one period.
// Approval (inherited from entity.Document) locks the lines; the period
// close approves the sheet and freezes the reconciliation totals below.
type Stocktake struct {
	entity.Document
	entity.PeriodAware

	// Cached roll-ups over lines, recomputed on every mutation
	TotalCountedValue  types.Money `db:"total_counted_value" json:"totalCountedValue"`
	TotalVarianceValue types.Money `db:"total_variance_value" json:"totalVarianceValue"`
	CountedLines       int         `db:"counted_lines" json:"countedLines"`

	// Frozen reconciliation snapshot, set at period close, cleared on reopen
	FrozenCOGS           *types.Money `db:"frozen_cogs" json:"frozenCogs,omitempty"`
	FrozenRevenue        *types.Money `db:"frozen_revenue" json:"frozenRevenue,omitempty"`
	FrozenGrossProfit    *types.Money `db:"frozen_gross_profit" json:"frozenGrossProfit,omitempty"`
	FrozenGrossProfitPct *types.Money `db:"frozen_gross_profit_pct" json:"frozenGrossProfitPct,omitempty"`
	FrozenPourCostPct    *types.Money `db:"frozen_pour_cost_pct" json:"frozenPourCostPct,omitempty"`
	FrozenCogsSource     *string      `db:"frozen_cogs_source" json:"frozenCogsSource,omitempty"`
	FrozenRevenueSource  *string      `db:"frozen_revenue_source" json:"frozenRevenueSource,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one item's record within the sheet.
//
// The measure fields and UnitCost are snapshots taken when the sheet was
// opened; catalog edits mid-period never change recorded line math.
// Raw counts are stored normalized (juice bottle overflow folded into cases),
// so equal physical stock always produces identical stored state.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID   id.ID        `db:"item_id" json:"itemId"`
	ItemName string       `db:"item_name" json:"itemName"`
	Category uom.Category `db:"category" json:"category"`

	// Measure snapshot
	Scheme            uom.Scheme      `db:"scheme" json:"scheme"`
	UnitsPerContainer int64           `db:"units_per_container" json:"unitsPerContainer"`
	ContainerML       decimal.Decimal `db:"container_ml" json:"containerMl"`
	ServingML         decimal.Decimal `db:"serving_ml" json:"servingMl"`

	// UnitCost is the container cost snapshot in minor units
	UnitCost types.MinorUnits `db:"unit_cost" json:"unitCost"`

	// Opening count (normalized raw form + canonical servings)
	OpeningFull    decimal.Decimal `db:"opening_full" json:"openingFull"`
	OpeningPartial decimal.Decimal `db:"opening_partial" json:"openingPartial"`
	OpeningQty     types.Quantity  `db:"opening_qty" json:"openingQty"`

	// Counted raw inputs
	CountedFull    decimal.Decimal `db:"counted_full" json:"countedFull"`
	CountedPartial decimal.Decimal `db:"counted_partial" json:"countedPartial"`
	Counted        bool            `db:"counted" json:"counted"`
	CountedAt      *time.Time      `db:"counted_at" json:"countedAt,omitempty"`
	CountedBy      *string         `db:"counted_by" json:"countedBy,omitempty"`
	CountSource    CountSource     `db:"count_source" json:"countSource,omitempty"`

	// Monetary line overrides in minor units (nil = unset)
	PurchasesOverride *types.MinorUnits `db:"purchases_override" json:"purchasesOverride,omitempty"`
	WasteOverride     *types.MinorUnits `db:"waste_override" json:"wasteOverride,omitempty"`
	SalesOverride     *types.MinorUnits `db:"sales_override" json:"salesOverride,omitempty"`

	// Ledger-derived canonical quantities, refreshed from the register
	PurchasedQty types.Quantity `db:"purchased_qty" json:"purchasedQty"`
	WastedQty    types.Quantity `db:"wasted_qty" json:"wastedQty"`
	SoldQty      types.Quantity `db:"sold_qty" json:"soldQty"`

	// Derived fields (cached projections of the raw inputs above)
	CountedQty    types.Quantity `db:"counted_qty" json:"countedQty"`
	ExpectedQty   types.Quantity `db:"expected_qty" json:"expectedQty"`
	VarianceQty   types.Quantity `db:"variance_qty" json:"varianceQty"`
	CountedValue  types.Money    `db:"counted_value" json:"countedValue"`
	VarianceValue types.Money    `db:"variance_value" json:"varianceValue"`
}

// Measure rebuilds the conversion metadata from the line snapshot.
func (l *Line) Measure() uom.Measure {
	return uom.Measure{
		Scheme:            l.Scheme,
		UnitsPerContainer: l.UnitsPerContainer,
		ContainerML:       l.ContainerML,
		ServingML:         l.ServingML,
	}
}

// recompute derives canonical quantities and valuation from raw inputs.
//
// Valuation is always container equivalents times unit cost; canonical
// servings never enter a money figure, so changing an item's pour size
// cannot reprice stock.
func (l *Line) recompute(reg *uom.Registry) error {
	m := l.Measure()
	cost := l.UnitCost.Money(currencyExponent)

	if l.Counted {
		conv, err := reg.Convert(m, uom.NewCount(l.CountedFull, l.CountedPartial))
		if err != nil {
			return err
		}
		l.CountedQty = types.NewQuantityFromDecimal(conv.Servings)
		l.CountedValue = conv.Containers.Mul(cost)
	} else {
		l.CountedQty = 0
		l.CountedValue = decimal.Zero
	}

	purchases, err := l.overrideOrLedgerQty(reg, m, l.PurchasesOverride, l.PurchasedQty)
	if err != nil {
		return err
	}
	waste, err := l.overrideOrLedgerQty(reg, m, l.WasteOverride, l.WastedQty)
	if err != nil {
		return err
	}

	// Sold quantity always comes from the ledger: a sales override is
	// revenue money and menu prices are informational, so there is no
	// sound conversion from it back to servings.
	l.ExpectedQty = l.OpeningQty.Add(purchases).Sub(waste).Sub(l.SoldQty)

	if l.Counted {
		l.VarianceQty = l.CountedQty.Sub(l.ExpectedQty)
		per, err := reg.ServingsPerContainer(m)
		if err != nil {
			return err
		}
		varianceContainers := l.VarianceQty.Decimal().Div(per)
		l.VarianceValue = varianceContainers.Mul(cost)
	} else {
		l.VarianceQty = 0
		l.VarianceValue = decimal.Zero
	}

	return nil
}

// overrideOrLedgerQty resolves a line's purchases or waste quantity: the
// monetary override converted to canonical servings when set, otherwise the
// ledger-derived figure.
func (l *Line) overrideOrLedgerQty(reg *uom.Registry, m uom.Measure, override *types.MinorUnits, ledgerQty types.Quantity) (types.Quantity, error) {
	if override == nil {
		return ledgerQty, nil
	}
	if l.UnitCost <= 0 {
		return 0, apperror.NewInvalidMeasure("unit cost required to convert a monetary override").
			WithDetail("line_no", l.LineNo).
			WithDetail("item", l.ItemName)
	}
	per, err := reg.ServingsPerContainer(m)
	if err != nil {
		return 0, err
	}
	containers := override.Money(currencyExponent).Div(l.UnitCost.Money(currencyExponent))
	return types.NewQuantityFromDecimal(containers.Mul(per)), nil
}

// New creates a draft stocktake for a period and venue.
func New(periodID, venueID id.ID) *Stocktake {
	return &Stocktake{
		Document:           entity.NewDocument(venueID),
		PeriodAware:        entity.PeriodAware{PeriodID: periodID},
		TotalCountedValue:  decimal.Zero,
		TotalVarianceValue: decimal.Zero,
		Lines:              make([]Line, 0),
	}
}

// Validate implements entity.Validatable.
func (st *Stocktake) Validate(ctx context.Context) error {
	if err := st.Document.Validate(ctx); err != nil {
		return err
	}
	return st.ValidatePeriod(ctx)
}

// AddLine snapshots an item onto the sheet with an opening count.
func (st *Stocktake) AddLine(reg *uom.Registry, it *item.Item, opening uom.Count) error {
	m, err := it.Measure()
	if err != nil {
		return err
	}
	normalized, err := reg.Normalize(m, opening)
	if err != nil {
		return err
	}
	conv, err := reg.Convert(m, normalized)
	if err != nil {
		return err
	}

	line := Line{
		LineID:            id.New(),
		LineNo:            len(st.Lines) + 1,
		ItemID:            it.ID,
		ItemName:          it.Name,
		Category:          it.Category,
		Scheme:            m.Scheme,
		UnitsPerContainer: m.UnitsPerContainer,
		ContainerML:       m.ContainerML,
		ServingML:         m.ServingML,
		UnitCost:          types.MinorUnitsFromMoney(it.UnitCost, currencyExponent),
		OpeningFull:       normalized.Full,
		OpeningPartial:    normalized.Partial,
		OpeningQty:        types.NewQuantityFromDecimal(conv.Servings),
		CountedValue:      decimal.Zero,
		VarianceValue:     decimal.Zero,
	}
	if err := line.recompute(reg); err != nil {
		return err
	}

	st.Lines = append(st.Lines, line)
	st.recalculateTotals()
	return nil
}

// RecordCount stores a count for one line and rederives its figures.
// Re-submitting the same full/partial pair is idempotent: the derived fields
// are pure functions of the stored raw inputs.
func (st *Stocktake) RecordCount(reg *uom.Registry, lineID id.ID, full, partial decimal.Decimal, source CountSource, actor string) (*Line, error) {
	if err := st.CanModify(); err != nil {
		return nil, err
	}
	l := st.findLine(lineID)
	if l == nil {
		return nil, apperror.NewNotFound("stocktake line", lineID.String())
	}

	normalized, err := reg.Normalize(l.Measure(), uom.NewCount(full, partial))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	l.CountedFull = normalized.Full
	l.CountedPartial = normalized.Partial
	l.Counted = true
	l.CountedAt = &now
	l.CountedBy = &actor
	l.CountSource = source

	if err := l.recompute(reg); err != nil {
		return nil, err
	}

	st.recalculateTotals()
	st.Touch()
	return l, nil
}

// SetLineOverride sets or clears (amount == nil) a line's manual figure.
func (st *Stocktake) SetLineOverride(reg *uom.Registry, lineID id.ID, kind OverrideKind, amount *types.MinorUnits) (*Line, error) {
	if err := st.CanModify(); err != nil {
		return nil, err
	}
	l := st.findLine(lineID)
	if l == nil {
		return nil, apperror.NewNotFound("stocktake line", lineID.String())
	}
	if amount != nil && amount.IsNegative() {
		return nil, apperror.NewInvalidQuantity("amount", int64(*amount))
	}

	switch kind {
	case OverridePurchases, OverrideWaste:
		// Cost overrides convert back to servings for expected-quantity
		// derivation, which needs a non-zero container cost.
		if amount != nil && l.UnitCost <= 0 {
			return nil, apperror.NewInvalidMeasure("unit cost required to convert a monetary override").
				WithDetail("line_no", l.LineNo).
				WithDetail("item", l.ItemName)
		}
		if kind == OverridePurchases {
			l.PurchasesOverride = amount
		} else {
			l.WasteOverride = amount
		}
	case OverrideSales:
		l.SalesOverride = amount
	default:
		return nil, apperror.NewValidation("invalid override kind for line scope").
			WithDetail("kind", string(kind))
	}

	if err := l.recompute(reg); err != nil {
		return nil, err
	}

	st.recalculateTotals()
	st.Touch()
	return l, nil
}

// ApplyFlows refreshes every line's ledger-derived quantities and rederives
// the sheet.
func (st *Stocktake) ApplyFlows(reg *uom.Registry, flows map[id.ID]entity.ItemFlow) error {
	for i := range st.Lines {
		l := &st.Lines[i]
		f := flows[l.ItemID]
		l.PurchasedQty = f.PurchasedQty
		l.WastedQty = f.WastedQty
		l.SoldQty = f.SoldQty
		if err := l.recompute(reg); err != nil {
			return err
		}
	}
	st.recalculateTotals()
	return nil
}

// Recompute rederives all lines from their stored raw inputs.
func (st *Stocktake) Recompute(reg *uom.Registry) error {
	for i := range st.Lines {
		if err := st.Lines[i].recompute(reg); err != nil {
			return err
		}
	}
	st.recalculateTotals()
	return nil
}

// UncountedLines returns how many lines still have no recorded count.
func (st *Stocktake) UncountedLines() int {
	return len(st.Lines) - st.CountedLines
}

// TotalLines returns the number of lines on the sheet.
func (st *Stocktake) TotalLines() int {
	return len(st.Lines)
}

// LineCostOverrideSum sums all line purchase and waste overrides.
// Returns nil when no line has either set, so the aggregator can tell
// "no overrides" from "overrides totaling zero".
func (st *Stocktake) LineCostOverrideSum() *types.MinorUnits {
	var sum types.MinorUnits
	found := false
	for i := range st.Lines {
		if v := st.Lines[i].PurchasesOverride; v != nil {
			sum += *v
			found = true
		}
		if v := st.Lines[i].WasteOverride; v != nil {
			sum += *v
			found = true
		}
	}
	if !found {
		return nil
	}
	return &sum
}

// LineSalesOverrideSum sums all line sales overrides; nil when none is set.
func (st *Stocktake) LineSalesOverrideSum() *types.MinorUnits {
	var sum types.MinorUnits
	found := false
	for i := range st.Lines {
		if v := st.Lines[i].SalesOverride; v != nil {
			sum += *v
			found = true
		}
	}
	if !found {
		return nil
	}
	return &sum
}

// FrozenTotals is the reconciliation snapshot frozen at period close.
type FrozenTotals struct {
	COGS           types.Money  `json:"cogs"`
	Revenue        types.Money  `json:"revenue"`
	GrossProfit    types.Money  `json:"grossProfit"`
	GrossProfitPct *types.Money `json:"grossProfitPct,omitempty"`
	PourCostPct    *types.Money `json:"pourCostPct,omitempty"`
	CogsSource     string       `json:"cogsSource"`
	RevenueSource  string       `json:"revenueSource"`
}

// Freeze stores the close snapshot and approves the sheet.
func (st *Stocktake) Freeze(t FrozenTotals) {
	st.FrozenCOGS = &t.COGS
	st.FrozenRevenue = &t.Revenue
	st.FrozenGrossProfit = &t.GrossProfit
	st.FrozenGrossProfitPct = t.GrossProfitPct
	st.FrozenPourCostPct = t.PourCostPct
	st.FrozenCogsSource = &t.CogsSource
	st.FrozenRevenueSource = &t.RevenueSource
	st.MarkApproved()
}

// Unfreeze clears the close snapshot and unlocks the sheet.
// Counts are retained; totals go back to recompute-on-demand.
func (st *Stocktake) Unfreeze() {
	st.FrozenCOGS = nil
	st.FrozenRevenue = nil
	st.FrozenGrossProfit = nil
	st.FrozenGrossProfitPct = nil
	st.FrozenPourCostPct = nil
	st.FrozenCogsSource = nil
	st.FrozenRevenueSource = nil
	st.MarkUnapproved()
}

// Frozen returns the close snapshot, if one is present.
func (st *Stocktake) Frozen() (FrozenTotals, bool) {
	if st.FrozenCOGS == nil || st.FrozenRevenue == nil || st.FrozenGrossProfit == nil {
		return FrozenTotals{}, false
	}
	t := FrozenTotals{
		COGS:           *st.FrozenCOGS,
		Revenue:        *st.FrozenRevenue,
		GrossProfit:    *st.FrozenGrossProfit,
		GrossProfitPct: st.FrozenGrossProfitPct,
		PourCostPct:    st.FrozenPourCostPct,
	}
	if st.FrozenCogsSource != nil {
		t.CogsSource = *st.FrozenCogsSource
	}
	if st.FrozenRevenueSource != nil {
		t.RevenueSource = *st.FrozenRevenueSource
	}
	return t, true
}

func (st *Stocktake) findLine(lineID id.ID) *Line {
	for i := range st.Lines {
		if st.Lines[i].LineID == lineID {
			return &st.Lines[i]
		}
	}
	return nil
}

func (st *Stocktake) recalculateTotals() {
	st.TotalCountedValue = decimal.Zero
	st.TotalVarianceValue = decimal.Zero
	st.CountedLines = 0

	for i := range st.Lines {
		l := &st.Lines[i]
		st.TotalCountedValue = st.TotalCountedValue.Add(l.CountedValue)
		st.TotalVarianceValue = st.TotalVarianceValue.Add(l.VarianceValue)
		if l.Counted {
			st.CountedLines++
		}
	}
}
