package period

import (
	"github.com/shopspring/decimal"

	"bartally/internal/core/entity"
	"bartally/internal/core/types"
)

// Resolution sources, recorded on every summary so operators can see which
// tier produced a figure.
const (
	SourcePeriodOverride = "period_override"
	SourceLineOverrides  = "line_overrides"
	SourceLedger         = "ledger"
	SourceFrozen         = "frozen"
)

// Inputs carries everything one summary computation consumes. The aggregator
// is pure: it never touches storage and never mutates line data.
type Inputs struct {
	// PurchasesOverride and SalesOverride are the period-level manual totals
	PurchasesOverride *types.MinorUnits
	SalesOverride     *types.MinorUnits

	// LineCostOverrides is the sum of all line-level purchase and waste
	// overrides; nil when no line has one set
	LineCostOverrides *types.MinorUnits

	// LineSalesOverrides is the sum of all line-level sales overrides;
	// nil when no line has one set
	LineSalesOverrides *types.MinorUnits

	// Ledger is the automatic tier: ingested purchase/waste/sale totals
	Ledger entity.LedgerTotals
}

// Resolver is one tier of an override cascade.
type Resolver struct {
	Source  string
	Resolve func(Inputs) *types.MinorUnits
}

// cogsCascade: period override, then line overrides, then the ledger.
// Operators key bulk purchase totals at period level, so that tier wins.
func cogsCascade() []Resolver {
	return []Resolver{
		{Source: SourcePeriodOverride, Resolve: func(in Inputs) *types.MinorUnits {
			return in.PurchasesOverride
		}},
		{Source: SourceLineOverrides, Resolve: func(in Inputs) *types.MinorUnits {
			return in.LineCostOverrides
		}},
		{Source: SourceLedger, Resolve: func(in Inputs) *types.MinorUnits {
			v := in.Ledger.PurchasesAmount + in.Ledger.WasteAmount
			return &v
		}},
	}
}

// revenueCascade: line overrides, then period override, then the ledger.
// The order is deliberately the mirror of COGS: sales corrections are entered
// per item, so line figures beat the period total.
func revenueCascade() []Resolver {
	return []Resolver{
		{Source: SourceLineOverrides, Resolve: func(in Inputs) *types.MinorUnits {
			return in.LineSalesOverrides
		}},
		{Source: SourcePeriodOverride, Resolve: func(in Inputs) *types.MinorUnits {
			return in.SalesOverride
		}},
		{Source: SourceLedger, Resolve: func(in Inputs) *types.MinorUnits {
			v := in.Ledger.SalesAmount
			return &v
		}},
	}
}

// Summary is one period's resolved reconciliation result.
// GrossProfitPct and PourCostPct are nil when revenue is zero.
type Summary struct {
	COGS        types.Money `json:"cogs"`
	Revenue     types.Money `json:"revenue"`
	GrossProfit types.Money `json:"grossProfit"`

	GrossProfitPct *types.Money `json:"grossProfitPct,omitempty"`
	PourCostPct    *types.Money `json:"pourCostPct,omitempty"`

	// CogsSource and RevenueSource name the cascade tier that resolved
	CogsSource    string `json:"cogsSource"`
	RevenueSource string `json:"revenueSource"`
}

// Aggregator resolves COGS and revenue through their override cascades.
// The cascades are ordered resolver lists held as data, not control flow,
// so each can be inspected and tested tier by tier.
type Aggregator struct {
	cogs    []Resolver
	revenue []Resolver

	// decimalPlaces is the tenant currency exponent for minor-unit conversion
	decimalPlaces int
}

// NewAggregator builds an aggregator with the standard cascades.
func NewAggregator() *Aggregator {
	return &Aggregator{
		cogs:          cogsCascade(),
		revenue:       revenueCascade(),
		decimalPlaces: 2,
	}
}

// Summarize computes the period summary. Re-entrant and side-effect free;
// dashboards may call it repeatedly while the period is open.
func (a *Aggregator) Summarize(in Inputs) Summary {
	cogsMinor, cogsSource := resolveCascade(a.cogs, in)
	revenueMinor, revenueSource := resolveCascade(a.revenue, in)

	cogs := cogsMinor.Money(a.decimalPlaces)
	revenue := revenueMinor.Money(a.decimalPlaces)
	grossProfit := revenue.Sub(cogs)

	s := Summary{
		COGS:          cogs,
		Revenue:       revenue,
		GrossProfit:   grossProfit,
		CogsSource:    cogsSource,
		RevenueSource: revenueSource,
	}

	// Zero revenue leaves the percentages undefined, not zero.
	if !revenue.IsZero() {
		hundred := decimal.NewFromInt(100)
		gpPct := grossProfit.Div(revenue).Mul(hundred).Round(2)
		pourPct := cogs.Div(revenue).Mul(hundred).Round(2)
		s.GrossProfitPct = &gpPct
		s.PourCostPct = &pourPct
	}

	return s
}

func resolveCascade(tiers []Resolver, in Inputs) (types.MinorUnits, string) {
	for _, tier := range tiers {
		if v := tier.Resolve(in); v != nil {
			return *v, tier.Source
		}
	}
	// The ledger tier always resolves; this is unreachable with the
	// standard cascades.
	return 0, SourceLedger
}
