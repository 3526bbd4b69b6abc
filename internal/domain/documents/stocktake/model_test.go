package stocktake

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/core/types"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/uom"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func requireMoneyEqual(t *testing.T, want string, got types.Money) {
	t.Helper()
	require.True(t, got.Equal(d(want)), "want %s, got %s", want, got.String())
}

func qty(units string) types.Quantity {
	return types.NewQuantityFromDecimal(d(units))
}

func minor(v int64) *types.MinorUnits {
	m := types.MinorUnits(v)
	return &m
}

// vodkaItem: spirits at 20 shots per 70cl bottle, 18.50 per bottle.
func vodkaItem() *item.Item {
	it := item.NewItem("ITM-00001", "House Vodka 70cl", uom.CategorySpirits)
	it.UnitsPerContainer = 20
	it.UnitCost = d("18.50")
	return it
}

// syrupItem: 700ml bottle, 35ml pump, 9.00 per bottle.
func syrupItem() *item.Item {
	it := item.NewItem("ITM-00002", "Vanilla Syrup", uom.CategorySyrup)
	it.ContainerML = d("700")
	it.ServingML = d("35")
	it.UnitCost = d("9.00")
	return it
}

// juiceItem: 12 x 1L cartons per case, 200ml serve, 14.40 per case.
func juiceItem() *item.Item {
	it := item.NewItem("ITM-00003", "Orange Juice 1L", uom.CategoryJuice)
	it.UnitsPerContainer = 12
	it.ContainerML = d("1000")
	it.ServingML = d("200")
	it.UnitCost = d("14.40")
	return it
}

func sheetWith(t *testing.T, reg *uom.Registry, items ...*item.Item) *Stocktake {
	t.Helper()
	st := New(id.New(), id.New())
	for _, it := range items {
		require.NoError(t, st.AddLine(reg, it, uom.NewCount(decimal.Zero, decimal.Zero)))
	}
	return st
}

func TestAddLineSnapshotsMeasureAndOpening(t *testing.T) {
	reg := uom.NewRegistry()
	st := New(id.New(), id.New())

	it := juiceItem()
	// Opening entered bottle-style: 26 cartons = 2 cases + 2 cartons
	require.NoError(t, st.AddLine(reg, it, uom.NewCount(decimal.Zero, d("26"))))

	require.Len(t, st.Lines, 1)
	l := st.Lines[0]

	assert.Equal(t, 1, l.LineNo)
	assert.Equal(t, it.ID, l.ItemID)
	assert.Equal(t, "Orange Juice 1L", l.ItemName)
	assert.Equal(t, uom.SchemeCaseBulk, l.Scheme)
	assert.Equal(t, int64(12), l.UnitsPerContainer)
	assert.Equal(t, types.MinorUnits(1440), l.UnitCost)

	// Stored normalized, not as entered
	requireMoneyEqual(t, "2", l.OpeningFull)
	requireMoneyEqual(t, "2", l.OpeningPartial)
	assert.Equal(t, qty("130"), l.OpeningQty) // 26 L / 200ml

	assert.False(t, l.Counted)
	assert.Equal(t, types.Quantity(0), l.VarianceQty)
	requireMoneyEqual(t, "0", l.VarianceValue)
}

func TestRecordCountValuesByContainers(t *testing.T) {
	reg := uom.NewRegistry()
	st := sheetWith(t, reg, vodkaItem())
	lineID := st.Lines[0].LineID

	l, err := st.RecordCount(reg, lineID, d("3"), d("0.25"), SourceManual, "maria")
	require.NoError(t, err)

	assert.Equal(t, qty("65"), l.CountedQty)
	requireMoneyEqual(t, "60.125", l.CountedValue) // 3.25 bottles x 18.50

	assert.True(t, l.Counted)
	require.NotNil(t, l.CountedBy)
	assert.Equal(t, "maria", *l.CountedBy)
	assert.Equal(t, SourceManual, l.CountSource)
	require.NotNil(t, l.CountedAt)

	assert.Equal(t, 1, st.CountedLines)
	requireMoneyEqual(t, "60.125", st.TotalCountedValue)
}

func TestValuationIgnoresServingSize(t *testing.T) {
	reg := uom.NewRegistry()

	// Same physical syrup stock, two pump calibrations
	small := syrupItem()
	large := syrupItem()
	large.ServingML = d("70")

	st := sheetWith(t, reg, small, large)

	l1, err := st.RecordCount(reg, st.Lines[0].LineID, d("4"), d("0.5"), SourceManual, "maria")
	require.NoError(t, err)
	l2, err := st.RecordCount(reg, st.Lines[1].LineID, d("4"), d("0.5"), SourceManual, "maria")
	require.NoError(t, err)

	// Value depends only on bottle equivalents: 4.5 x 9.00
	requireMoneyEqual(t, "40.5", l1.CountedValue)
	requireMoneyEqual(t, "40.5", l2.CountedValue)

	// Canonical servings differ with the pump size
	assert.Equal(t, qty("90"), l1.CountedQty)
	assert.Equal(t, qty("45"), l2.CountedQty)
}

func TestExpectedAndVarianceFromLedgerFlows(t *testing.T) {
	reg := uom.NewRegistry()
	st := New(id.New(), id.New())

	it := vodkaItem()
	require.NoError(t, st.AddLine(reg, it, uom.NewCount(d("10"), decimal.Zero)))
	assert.Equal(t, qty("200"), st.Lines[0].OpeningQty)

	require.NoError(t, st.ApplyFlows(reg, map[id.ID]entity.ItemFlow{
		it.ID: {
			ItemID:       it.ID,
			PurchasedQty: qty("60"),  // 3 bottles received
			WastedQty:    qty("5"),   // spillage
			SoldQty:      qty("120"), // POS
		},
	}))

	l, err := st.RecordCount(reg, st.Lines[0].LineID, d("6"), d("0.5"), SourceManual, "maria")
	require.NoError(t, err)

	// 200 + 60 - 5 - 120
	assert.Equal(t, qty("135"), l.ExpectedQty)
	assert.Equal(t, qty("130"), l.CountedQty)
	assert.Equal(t, qty("-5"), l.VarianceQty)

	// -5 shots = -0.25 bottle x 18.50
	requireMoneyEqual(t, "-4.625", l.VarianceValue)
	requireMoneyEqual(t, "-4.625", st.TotalVarianceValue)
}

func TestUncountedLineCarriesNoVariance(t *testing.T) {
	reg := uom.NewRegistry()
	st := New(id.New(), id.New())

	it := vodkaItem()
	require.NoError(t, st.AddLine(reg, it, uom.NewCount(d("10"), decimal.Zero)))
	require.NoError(t, st.ApplyFlows(reg, map[id.ID]entity.ItemFlow{
		it.ID: {ItemID: it.ID, SoldQty: qty("120")},
	}))

	l := st.Lines[0]
	assert.Equal(t, qty("80"), l.ExpectedQty)
	assert.Equal(t, types.Quantity(0), l.VarianceQty)
	requireMoneyEqual(t, "0", l.VarianceValue)
	assert.Equal(t, 1, st.UncountedLines())
}

func TestMonetaryOverridesReplaceLedgerQuantities(t *testing.T) {
	reg := uom.NewRegistry()
	st := New(id.New(), id.New())

	it := vodkaItem()
	require.NoError(t, st.AddLine(reg, it, uom.NewCount(d("10"), decimal.Zero)))
	lineID := st.Lines[0].LineID

	// 37.00 of purchases at 18.50 a bottle = 2 bottles = 40 shots
	l, err := st.SetLineOverride(reg, lineID, OverridePurchases, minor(3700))
	require.NoError(t, err)
	assert.Equal(t, qty("240"), l.ExpectedQty)

	// 9.25 of waste = half a bottle = 10 shots
	l, err = st.SetLineOverride(reg, lineID, OverrideWaste, minor(925))
	require.NoError(t, err)
	assert.Equal(t, qty("230"), l.ExpectedQty)

	// Sales override is revenue only; sold quantity still comes from the
	// ledger, so expected stock does not move
	l, err = st.SetLineOverride(reg, lineID, OverrideSales, minor(250000))
	require.NoError(t, err)
	assert.Equal(t, qty("230"), l.ExpectedQty)

	// Perfect count: no variance
	l, err = st.RecordCount(reg, lineID, d("11"), d("0.5"), SourceManual, "maria")
	require.NoError(t, err)
	assert.Equal(t, qty("230"), l.CountedQty)
	assert.Equal(t, types.Quantity(0), l.VarianceQty)
	requireMoneyEqual(t, "0", l.VarianceValue)

	// Clearing the waste override falls back to ledger waste (zero here)
	l, err = st.SetLineOverride(reg, lineID, OverrideWaste, nil)
	require.NoError(t, err)
	assert.Equal(t, qty("240"), l.ExpectedQty)
	assert.Equal(t, qty("-10"), l.VarianceQty)
}

func TestOverrideValidation(t *testing.T) {
	reg := uom.NewRegistry()
	st := sheetWith(t, reg, vodkaItem())
	lineID := st.Lines[0].LineID

	_, err := st.SetLineOverride(reg, lineID, OverridePurchases, minor(-100))
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity))

	_, err = st.SetLineOverride(reg, lineID, OverrideKind("discounts"), minor(100))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = st.SetLineOverride(reg, id.New(), OverridePurchases, minor(100))
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	// Cost overrides need a unit cost to convert through
	free := vodkaItem()
	free.UnitCost = decimal.Zero
	st2 := sheetWith(t, reg, free)
	_, err = st2.SetLineOverride(reg, st2.Lines[0].LineID, OverrideWaste, minor(100))
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidMeasure))

	// A sales override on a costless line is fine: it never converts back
	_, err = st2.SetLineOverride(reg, st2.Lines[0].LineID, OverrideSales, minor(100))
	assert.NoError(t, err)
}

func TestRecordCountIsIdempotent(t *testing.T) {
	reg := uom.NewRegistry()
	st := New(id.New(), id.New())

	it := vodkaItem()
	require.NoError(t, st.AddLine(reg, it, uom.NewCount(d("10"), decimal.Zero)))
	require.NoError(t, st.ApplyFlows(reg, map[id.ID]entity.ItemFlow{
		it.ID: {ItemID: it.ID, SoldQty: qty("70")},
	}))
	lineID := st.Lines[0].LineID

	first, err := st.RecordCount(reg, lineID, d("6"), d("0.5"), SourceManual, "maria")
	require.NoError(t, err)
	snapshot := *first

	second, err := st.RecordCount(reg, lineID, d("6"), d("0.5"), SourceVoice, "maria")
	require.NoError(t, err)

	assert.Equal(t, snapshot.CountedQty, second.CountedQty)
	assert.Equal(t, snapshot.ExpectedQty, second.ExpectedQty)
	assert.Equal(t, snapshot.VarianceQty, second.VarianceQty)
	requireMoneyEqual(t, snapshot.CountedValue.String(), second.CountedValue)
	requireMoneyEqual(t, snapshot.VarianceValue.String(), second.VarianceValue)
	assert.Equal(t, 1, st.CountedLines)
}

func TestRecordCountNormalizesEntryMode(t *testing.T) {
	reg := uom.NewRegistry()
	st := sheetWith(t, reg, juiceItem())
	lineID := st.Lines[0].LineID

	// Cases-first entry: 2 cases + 6 cartons + half a carton
	byCase, err := st.RecordCount(reg, lineID, d("2"), d("6.5"), SourceManual, "maria")
	require.NoError(t, err)
	requireMoneyEqual(t, "2", byCase.CountedFull)
	requireMoneyEqual(t, "6.5", byCase.CountedPartial)
	assert.Equal(t, qty("152.5"), byCase.CountedQty)

	// Same stock entered carton-style: 30.5 cartons
	byBottle, err := st.RecordCount(reg, lineID, decimal.Zero, d("30.5"), SourceManual, "maria")
	require.NoError(t, err)
	requireMoneyEqual(t, "2", byBottle.CountedFull)
	requireMoneyEqual(t, "6.5", byBottle.CountedPartial)
	assert.Equal(t, qty("152.5"), byBottle.CountedQty)
	requireMoneyEqual(t, byCase.CountedValue.String(), byBottle.CountedValue)
}

func TestRecordCountRejectsBadCounts(t *testing.T) {
	reg := uom.NewRegistry()
	st := sheetWith(t, reg, vodkaItem())
	lineID := st.Lines[0].LineID

	_, err := st.RecordCount(reg, lineID, d("-1"), decimal.Zero, SourceManual, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity))

	_, err = st.RecordCount(reg, lineID, d("3"), d("1.25"), SourceManual, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeFractionOutOfRange))

	_, err = st.RecordCount(reg, id.New(), d("1"), decimal.Zero, SourceManual, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestApprovedSheetLocksLines(t *testing.T) {
	reg := uom.NewRegistry()
	st := sheetWith(t, reg, vodkaItem())
	lineID := st.Lines[0].LineID

	st.MarkApproved()

	_, err := st.RecordCount(reg, lineID, d("1"), decimal.Zero, SourceManual, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodeLineLocked))

	_, err = st.SetLineOverride(reg, lineID, OverridePurchases, minor(100))
	assert.True(t, apperror.IsCode(err, apperror.CodeLineLocked))
}

func TestOverrideSums(t *testing.T) {
	reg := uom.NewRegistry()
	st := sheetWith(t, reg, vodkaItem(), syrupItem())

	assert.Nil(t, st.LineCostOverrideSum())
	assert.Nil(t, st.LineSalesOverrideSum())

	_, err := st.SetLineOverride(reg, st.Lines[0].LineID, OverridePurchases, minor(3700))
	require.NoError(t, err)
	_, err = st.SetLineOverride(reg, st.Lines[1].LineID, OverrideWaste, minor(925))
	require.NoError(t, err)

	cost := st.LineCostOverrideSum()
	require.NotNil(t, cost)
	assert.Equal(t, types.MinorUnits(4625), *cost)
	assert.Nil(t, st.LineSalesOverrideSum())

	_, err = st.SetLineOverride(reg, st.Lines[0].LineID, OverrideSales, minor(12000))
	require.NoError(t, err)
	sales := st.LineSalesOverrideSum()
	require.NotNil(t, sales)
	assert.Equal(t, types.MinorUnits(12000), *sales)

	// A zero-amount override still counts as "set"
	_, err = st.SetLineOverride(reg, st.Lines[0].LineID, OverrideSales, minor(0))
	require.NoError(t, err)
	sales = st.LineSalesOverrideSum()
	require.NotNil(t, sales)
	assert.Equal(t, types.MinorUnits(0), *sales)

	_, err = st.SetLineOverride(reg, st.Lines[0].LineID, OverrideSales, nil)
	require.NoError(t, err)
	assert.Nil(t, st.LineSalesOverrideSum())
}

func TestFreezeCycle(t *testing.T) {
	reg := uom.NewRegistry()
	st := sheetWith(t, reg, vodkaItem())

	_, ok := st.Frozen()
	assert.False(t, ok)

	gp := types.Money(d("67.50"))
	pc := types.Money(d("32.50"))
	st.Freeze(FrozenTotals{
		COGS:           d("650.00"),
		Revenue:        d("2000.00"),
		GrossProfit:    d("1350.00"),
		GrossProfitPct: &gp,
		PourCostPct:    &pc,
		CogsSource:     "ledger",
		RevenueSource:  "period_override",
	})

	assert.True(t, st.Approved)
	assert.Equal(t, 1, st.ApprovedVersion)

	frozen, ok := st.Frozen()
	require.True(t, ok)
	requireMoneyEqual(t, "650.00", frozen.COGS)
	requireMoneyEqual(t, "2000.00", frozen.Revenue)
	requireMoneyEqual(t, "1350.00", frozen.GrossProfit)
	require.NotNil(t, frozen.GrossProfitPct)
	requireMoneyEqual(t, "67.50", *frozen.GrossProfitPct)
	assert.Equal(t, "ledger", frozen.CogsSource)
	assert.Equal(t, "period_override", frozen.RevenueSource)

	st.Unfreeze()
	assert.False(t, st.Approved)
	_, ok = st.Frozen()
	assert.False(t, ok)
	assert.Nil(t, st.FrozenCOGS)
	assert.Nil(t, st.FrozenCogsSource)

	// A later close is told apart by the bumped approval version
	st.Freeze(FrozenTotals{COGS: d("1"), Revenue: d("1"), GrossProfit: d("0"),
		CogsSource: "ledger", RevenueSource: "ledger"})
	assert.Equal(t, 2, st.ApprovedVersion)
}

func TestCountedLinesTracking(t *testing.T) {
	reg := uom.NewRegistry()
	st := sheetWith(t, reg, vodkaItem(), syrupItem(), juiceItem())

	assert.Equal(t, 3, st.TotalLines())
	assert.Equal(t, 3, st.UncountedLines())

	_, err := st.RecordCount(reg, st.Lines[1].LineID, d("2"), decimal.Zero, SourceManual, "maria")
	require.NoError(t, err)

	assert.Equal(t, 1, st.CountedLines)
	assert.Equal(t, 2, st.UncountedLines())
}
