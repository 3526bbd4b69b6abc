package period

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/core/types"
	"bartally/internal/domain"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/domain/registers/ledger"
	"bartally/internal/domain/uom"
)

type passTx struct{}

func (passTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePeriodRepo struct {
	p *Period
}

func (r *fakePeriodRepo) Create(_ context.Context, p *Period) error { r.p = p; return nil }

func (r *fakePeriodRepo) GetByID(context.Context, id.ID) (*Period, error) { return r.p, nil }

func (r *fakePeriodRepo) Update(_ context.Context, p *Period) error { r.p = p; return nil }

func (r *fakePeriodRepo) GetForUpdate(context.Context, id.ID) (*Period, error) { return r.p, nil }

func (r *fakePeriodRepo) GetForShare(context.Context, id.ID) (*Period, error) { return r.p, nil }

func (r *fakePeriodRepo) FindActiveAt(context.Context, id.ID, time.Time) (*Period, error) {
	return r.p, nil
}

func (r *fakePeriodRepo) HasOverlapping(context.Context, id.ID, time.Time, time.Time, id.ID) (bool, error) {
	return false, nil
}

func (r *fakePeriodRepo) List(context.Context, ListFilter) (domain.ListResult[*Period], error) {
	return domain.ListResult[*Period]{}, nil
}

// fakeSheetRepo keeps one document with its lines attached, which is all the
// close and summary paths ever touch.
type fakeSheetRepo struct {
	doc *stocktake.Stocktake
}

func (r *fakeSheetRepo) notFound() error { return apperror.NewNotFound("stocktake", "period") }

func (r *fakeSheetRepo) Create(_ context.Context, doc *stocktake.Stocktake) error {
	r.doc = doc
	return nil
}

func (r *fakeSheetRepo) GetByID(context.Context, id.ID) (*stocktake.Stocktake, error) {
	if r.doc == nil {
		return nil, r.notFound()
	}
	return r.doc, nil
}

func (r *fakeSheetRepo) Update(_ context.Context, doc *stocktake.Stocktake) error {
	r.doc = doc
	return nil
}

func (r *fakeSheetRepo) Delete(context.Context, id.ID) error { return nil }

func (r *fakeSheetRepo) GetForUpdate(ctx context.Context, docID id.ID) (*stocktake.Stocktake, error) {
	return r.GetByID(ctx, docID)
}

func (r *fakeSheetRepo) GetByPeriod(ctx context.Context, periodID id.ID) (*stocktake.Stocktake, error) {
	return r.GetByID(ctx, periodID)
}

func (r *fakeSheetRepo) GetByPeriodForUpdate(ctx context.Context, periodID id.ID) (*stocktake.Stocktake, error) {
	return r.GetByID(ctx, periodID)
}

func (r *fakeSheetRepo) ExistsForPeriod(context.Context, id.ID) (bool, error) {
	return r.doc != nil, nil
}

func (r *fakeSheetRepo) GetPreviousApproved(context.Context, id.ID, time.Time) (*stocktake.Stocktake, error) {
	return nil, r.notFound()
}

func (r *fakeSheetRepo) GetLines(context.Context, id.ID) ([]stocktake.Line, error) {
	return r.doc.Lines, nil
}

func (r *fakeSheetRepo) SaveLines(_ context.Context, _ id.ID, lines []stocktake.Line) error {
	r.doc.Lines = lines
	return nil
}

func (r *fakeSheetRepo) List(context.Context, stocktake.ListFilter) (domain.ListResult[*stocktake.Stocktake], error) {
	return domain.ListResult[*stocktake.Stocktake]{}, nil
}

type fakeLedgerRepo struct {
	totals entity.LedgerTotals
	flows  []entity.ItemFlow
}

func (r *fakeLedgerRepo) InsertEntries(_ context.Context, entries []entity.LedgerEntry) (int, error) {
	return len(entries), nil
}

func (r *fakeLedgerRepo) PeriodTotals(context.Context, id.ID) (entity.LedgerTotals, error) {
	return r.totals, nil
}

func (r *fakeLedgerRepo) ItemFlows(context.Context, id.ID) ([]entity.ItemFlow, error) {
	return r.flows, nil
}

func (r *fakeLedgerRepo) ListByPeriod(context.Context, id.ID, ledger.EntryFilter) ([]entity.LedgerEntry, error) {
	return nil, nil
}

type auditCall struct {
	entityType string
	entityID   id.ID
	action     string
	changes    any
}

type memAuditor struct {
	calls []auditCall
}

func (a *memAuditor) LogAction(_ context.Context, entityType string, entityID id.ID, action string, changes any) error {
	a.calls = append(a.calls, auditCall{entityType, entityID, action, changes})
	return nil
}

func (a *memAuditor) actions() []string {
	out := make([]string, 0, len(a.calls))
	for _, c := range a.calls {
		out = append(out, c.action)
	}
	return out
}

type memEvents struct {
	types []string
}

func (e *memEvents) PublishEvent(_ context.Context, _ string, _ id.ID, eventType string, _ any) error {
	e.types = append(e.types, eventType)
	return nil
}

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// closeEnv wires a real period service over in-memory storage: one draft
// period with a one-line sheet (spirits at 20 shots per 18.50 bottle) and
// ledger totals of 500.00 purchases, 10.00 waste, 1200.00 sales.
type closeEnv struct {
	svc      *Service
	sheetSvc *stocktake.Service
	reg      *uom.Registry
	period   *Period
	periods  *fakePeriodRepo
	sheets   *fakeSheetRepo
	entries  *fakeLedgerRepo
	auditor  *memAuditor
	events   *memEvents
}

func newCloseEnv(t *testing.T) *closeEnv {
	t.Helper()
	reg := uom.NewRegistry()

	p := testPeriod(t)
	periods := &fakePeriodRepo{p: p}

	it := item.NewItem("ITM-00001", "House Vodka 70cl", uom.CategorySpirits)
	it.UnitsPerContainer = 20
	it.UnitCost = dec("18.50")

	doc := stocktake.New(p.ID, p.VenueID)
	require.NoError(t, doc.AddLine(reg, it, uom.NewCount(decimal.Zero, decimal.Zero)))
	sheets := &fakeSheetRepo{doc: doc}

	entries := &fakeLedgerRepo{totals: entity.LedgerTotals{
		PurchasesAmount: 500_00,
		WasteAmount:     10_00,
		SalesAmount:     1200_00,
		EntryCount:      42,
	}}

	ledgerSvc := ledger.NewService(entries, nil, nil)
	sheetSvc := stocktake.NewService(sheets, reg, nil, nil, NewGate(periods), ledgerSvc, nil, passTx{})

	auditor := &memAuditor{}
	events := &memEvents{}
	svc := NewService(ServiceConfig{
		Repo:       periods,
		Stocktakes: sheetSvc,
		Ledger:     ledgerSvc,
		Auditor:    auditor,
		Events:     events,
		TxManager:  passTx{},
	})

	return &closeEnv{
		svc:      svc,
		sheetSvc: sheetSvc,
		reg:      reg,
		period:   p,
		periods:  periods,
		sheets:   sheets,
		entries:  entries,
		auditor:  auditor,
		events:   events,
	}
}

// countAll records a count of 3 bottles and a quarter on every line.
func (e *closeEnv) countAll(t *testing.T) {
	t.Helper()
	for _, l := range e.sheets.doc.Lines {
		_, err := e.sheets.doc.RecordCount(e.reg, l.LineID, dec("3"), dec("0.25"), stocktake.SourceManual, "maria")
		require.NoError(t, err)
	}
}

func TestCloseFreezesReconciliation(t *testing.T) {
	env := newCloseEnv(t)
	env.countAll(t)

	res, err := env.svc.Close(context.Background(), env.period.ID, "alice")
	require.NoError(t, err)

	assert.True(t, res.Period.IsClosed())
	assert.Equal(t, 1, res.Period.CloseCycle)
	require.NotNil(t, res.Period.ClosedBy)
	assert.Equal(t, "alice", *res.Period.ClosedBy)

	// No overrides set, so both sides resolve from the ledger
	assert.Equal(t, SourceLedger, res.Summary.CogsSource)
	assert.Equal(t, SourceLedger, res.Summary.RevenueSource)
	assert.True(t, res.Summary.COGS.Equal(types.MustMoney("510")), "cogs %s", res.Summary.COGS)
	assert.True(t, res.Summary.Revenue.Equal(types.MustMoney("1200")), "revenue %s", res.Summary.Revenue)
	assert.True(t, res.Summary.GrossProfit.Equal(types.MustMoney("690")), "gross profit %s", res.Summary.GrossProfit)
	require.NotNil(t, res.Summary.GrossProfitPct)
	assert.True(t, res.Summary.GrossProfitPct.Equal(types.MustMoney("57.5")), "gp pct %s", res.Summary.GrossProfitPct)
	require.NotNil(t, res.Summary.PourCostPct)
	assert.True(t, res.Summary.PourCostPct.Equal(types.MustMoney("42.5")), "pour pct %s", res.Summary.PourCostPct)

	// 3.25 bottles at 18.50
	assert.True(t, res.TotalCountedValue.Equal(types.MustMoney("60.125")), "counted value %s", res.TotalCountedValue)

	// The sheet carries the snapshot and is locked
	frozen, ok := env.sheets.doc.Frozen()
	require.True(t, ok)
	assert.True(t, frozen.COGS.Equal(types.MustMoney("510")))
	assert.Equal(t, SourceLedger, frozen.CogsSource)
	assert.True(t, env.sheets.doc.Approved)

	assert.Equal(t, []string{"close"}, env.auditor.actions())
	assert.Equal(t, []string{EventPeriodClosed}, env.events.types)
	assert.Empty(t, res.Alerts)
}

func TestCloseRequiresCompleteCount(t *testing.T) {
	env := newCloseEnv(t)

	_, err := env.svc.Close(context.Background(), env.period.ID, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeIncompleteCount))

	assert.False(t, env.period.IsClosed())
	assert.False(t, env.sheets.doc.Approved)
	_, ok := env.sheets.doc.Frozen()
	assert.False(t, ok)
	assert.Empty(t, env.auditor.calls)
	assert.Empty(t, env.events.types)
}

func TestCloseRefreshesLedgerFlows(t *testing.T) {
	env := newCloseEnv(t)
	env.countAll(t)

	// Sales delivered after the last on-screen recalculation
	itemID := env.sheets.doc.Lines[0].ItemID
	env.entries.flows = []entity.ItemFlow{{
		ItemID:  itemID,
		SoldQty: types.NewQuantityFromDecimal(dec("10")),
	}}

	_, err := env.svc.Close(context.Background(), env.period.ID, "alice")
	require.NoError(t, err)

	l := env.sheets.doc.Lines[0]
	assert.Equal(t, types.NewQuantityFromDecimal(dec("10")), l.SoldQty)
	// Expected goes negative: zero opening, nothing purchased, ten sold
	assert.Equal(t, types.NewQuantityFromDecimal(dec("-10")), l.ExpectedQty)
}

func TestCloseLosesToCompletedClose(t *testing.T) {
	env := newCloseEnv(t)
	env.countAll(t)

	_, err := env.svc.Close(context.Background(), env.period.ID, "alice")
	require.NoError(t, err)

	_, err = env.svc.Close(context.Background(), env.period.ID, "bob")
	assert.True(t, apperror.IsCode(err, apperror.CodeConflictingTransition))

	// The frozen figures and the audit trail are untouched by the loser
	assert.Equal(t, "alice", *env.period.ClosedBy)
	assert.Equal(t, []string{"close"}, env.auditor.actions())
}

func TestReopenUnlocksRetainingCloseAudit(t *testing.T) {
	env := newCloseEnv(t)
	env.countAll(t)

	_, err := env.svc.Close(context.Background(), env.period.ID, "alice")
	require.NoError(t, err)

	p, err := env.svc.Reopen(context.Background(), env.period.ID, "bob")
	require.NoError(t, err)

	assert.False(t, p.IsClosed())
	require.NotNil(t, p.ReopenedBy)
	assert.Equal(t, "bob", *p.ReopenedBy)
	assert.Equal(t, "alice", *p.ClosedBy)
	require.NotNil(t, p.ClosedAt)

	_, ok := env.sheets.doc.Frozen()
	assert.False(t, ok)
	assert.False(t, env.sheets.doc.Approved)

	assert.Equal(t, []string{"close", "reopen"}, env.auditor.actions())
	assert.Equal(t, []string{EventPeriodClosed, EventPeriodReopened}, env.events.types)

	// A second cycle with a changed count freezes fresh totals under the new actor
	firstCounted := env.sheets.doc.TotalCountedValue
	docID := env.sheets.doc.ID
	lineID := env.sheets.doc.Lines[0].LineID
	_, err = env.sheetSvc.RecordCount(context.Background(), docID, lineID, dec("4"), dec("0.25"), stocktake.SourceManual, "maria")
	require.NoError(t, err)

	res, err := env.svc.Close(context.Background(), env.period.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Period.CloseCycle)
	assert.Equal(t, "carol", *res.Period.ClosedBy)
	assert.Equal(t, "bob", *res.Period.ReopenedBy)

	_, ok = env.sheets.doc.Frozen()
	assert.True(t, ok)
	assert.False(t, env.sheets.doc.TotalCountedValue.Equal(firstCounted))
	assert.True(t, env.sheets.doc.TotalCountedValue.Equal(types.MustMoney("78.625")),
		"counted %s", env.sheets.doc.TotalCountedValue)
}

func TestReopenRequiresClosed(t *testing.T) {
	env := newCloseEnv(t)

	_, err := env.svc.Reopen(context.Background(), env.period.ID, "alice")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotClosed))
	assert.Empty(t, env.events.types)
}

func TestSetOverrideFeedsCloseAndLocksAfter(t *testing.T) {
	env := newCloseEnv(t)
	env.countAll(t)

	p, err := env.svc.SetOverride(context.Background(), env.period.ID, OverridePurchases, minor(300_00))
	require.NoError(t, err)
	require.NotNil(t, p.PurchasesOverride)
	assert.Equal(t, []string{"override_set"}, env.auditor.actions())

	res, err := env.svc.Close(context.Background(), env.period.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, SourcePeriodOverride, res.Summary.CogsSource)
	assert.True(t, res.Summary.COGS.Equal(types.MustMoney("300")), "cogs %s", res.Summary.COGS)

	_, err = env.svc.SetOverride(context.Background(), env.period.ID, OverrideSales, minor(100_00))
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodLocked))
}

func TestGetSummaryLiveThenFrozen(t *testing.T) {
	env := newCloseEnv(t)
	env.countAll(t)
	ctx := context.Background()

	live, err := env.svc.GetSummary(ctx, env.period.ID)
	require.NoError(t, err)
	assert.False(t, live.Frozen)
	assert.Equal(t, SourceLedger, live.RevenueSource)
	assert.True(t, live.Revenue.Equal(types.MustMoney("1200")), "revenue %s", live.Revenue)
	assert.Equal(t, 1, live.CountedLines)
	assert.Equal(t, 1, live.TotalLines)
	require.NotNil(t, live.TotalCountedValue)
	assert.True(t, live.TotalCountedValue.Equal(types.MustMoney("60.125")))

	_, err = env.svc.Close(ctx, env.period.ID, "alice")
	require.NoError(t, err)

	// Ledger keeps moving after the close; the summary must not
	env.entries.totals.SalesAmount = 9999_00

	frozen, err := env.svc.GetSummary(ctx, env.period.ID)
	require.NoError(t, err)
	assert.True(t, frozen.Frozen)
	assert.True(t, frozen.Revenue.Equal(types.MustMoney("1200")), "revenue %s", frozen.Revenue)
	require.NotNil(t, frozen.ClosedBy)
	assert.Equal(t, "alice", *frozen.ClosedBy)
}

func TestCountRejectedAfterCloseAllowedAfterReopen(t *testing.T) {
	env := newCloseEnv(t)
	env.countAll(t)
	ctx := context.Background()

	_, err := env.svc.Close(ctx, env.period.ID, "alice")
	require.NoError(t, err)

	docID := env.sheets.doc.ID
	lineID := env.sheets.doc.Lines[0].LineID
	_, err = env.sheetSvc.RecordCount(ctx, docID, lineID, dec("4"), decimal.Zero, stocktake.SourceManual, "maria")
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodLocked))
	// The recorded count survives the rejected write
	assert.True(t, env.sheets.doc.Lines[0].CountedFull.Equal(dec("3")))

	_, err = env.svc.Reopen(ctx, env.period.ID, "bob")
	require.NoError(t, err)

	res, err := env.sheetSvc.RecordCount(ctx, docID, lineID, dec("4"), decimal.Zero, stocktake.SourceManual, "maria")
	require.NoError(t, err)
	assert.True(t, env.sheets.doc.Lines[0].CountedFull.Equal(dec("4")))
	assert.Equal(t, stocktake.SourceManual, res.Source)
}

func TestGetSummaryBeforeSheetOpens(t *testing.T) {
	env := newCloseEnv(t)
	env.sheets.doc = nil

	sum, err := env.svc.GetSummary(context.Background(), env.period.ID)
	require.NoError(t, err)
	assert.False(t, sum.Frozen)
	assert.Nil(t, sum.TotalCountedValue)
	assert.Equal(t, 0, sum.TotalLines)
	assert.True(t, sum.Revenue.Equal(types.MustMoney("1200")), "revenue %s", sum.Revenue)
}
