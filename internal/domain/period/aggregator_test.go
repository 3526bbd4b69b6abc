package period

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/entity"
	"bartally/internal/core/types"
)

func minor(v int64) *types.MinorUnits {
	m := types.MinorUnits(v)
	return &m
}

func TestAggregatorCascadePriority(t *testing.T) {
	ledger := entity.LedgerTotals{
		PurchasesAmount: 100_00,
		WasteAmount:     20_00,
		SalesAmount:     500_00,
		EntryCount:      42,
	}

	tests := []struct {
		name              string
		in                Inputs
		wantCOGS          string
		wantCogsSource    string
		wantRevenue       string
		wantRevenueSource string
	}{
		{
			name:              "ledger fallback on both sides",
			in:                Inputs{Ledger: ledger},
			wantCOGS:          "120",
			wantCogsSource:    SourceLedger,
			wantRevenue:       "500",
			wantRevenueSource: SourceLedger,
		},
		{
			name: "period purchases override beats line overrides",
			in: Inputs{
				PurchasesOverride: minor(300_00),
				LineCostOverrides: minor(250_00),
				Ledger:            ledger,
			},
			wantCOGS:          "300",
			wantCogsSource:    SourcePeriodOverride,
			wantRevenue:       "500",
			wantRevenueSource: SourceLedger,
		},
		{
			name: "line cost overrides beat the ledger",
			in: Inputs{
				LineCostOverrides: minor(250_00),
				Ledger:            ledger,
			},
			wantCOGS:          "250",
			wantCogsSource:    SourceLineOverrides,
			wantRevenue:       "500",
			wantRevenueSource: SourceLedger,
		},
		{
			name: "line sales overrides beat the period override",
			in: Inputs{
				SalesOverride:      minor(700_00),
				LineSalesOverrides: minor(650_00),
				Ledger:             ledger,
			},
			wantCOGS:          "120",
			wantCogsSource:    SourceLedger,
			wantRevenue:       "650",
			wantRevenueSource: SourceLineOverrides,
		},
		{
			name: "period sales override beats the ledger",
			in: Inputs{
				SalesOverride: minor(700_00),
				Ledger:        ledger,
			},
			wantCOGS:          "120",
			wantCogsSource:    SourceLedger,
			wantRevenue:       "700",
			wantRevenueSource: SourcePeriodOverride,
		},
	}

	agg := NewAggregator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agg.Summarize(tt.in)
			assert.True(t, got.COGS.Equal(types.MustMoney(tt.wantCOGS)),
				"cogs: want %s, got %s", tt.wantCOGS, got.COGS)
			assert.Equal(t, tt.wantCogsSource, got.CogsSource)
			assert.True(t, got.Revenue.Equal(types.MustMoney(tt.wantRevenue)),
				"revenue: want %s, got %s", tt.wantRevenue, got.Revenue)
			assert.Equal(t, tt.wantRevenueSource, got.RevenueSource)
		})
	}
}

func TestAggregatorDerivedMetrics(t *testing.T) {
	agg := NewAggregator()

	got := agg.Summarize(Inputs{
		Ledger: entity.LedgerTotals{
			PurchasesAmount: 600_00,
			WasteAmount:     50_00,
			SalesAmount:     2000_00,
			EntryCount:      10,
		},
	})

	assert.True(t, got.GrossProfit.Equal(types.MustMoney("1350")), "gross profit %s", got.GrossProfit)
	require.NotNil(t, got.GrossProfitPct)
	require.NotNil(t, got.PourCostPct)
	assert.True(t, got.GrossProfitPct.Equal(types.MustMoney("67.5")), "gp pct %s", got.GrossProfitPct)
	assert.True(t, got.PourCostPct.Equal(types.MustMoney("32.5")), "pour pct %s", got.PourCostPct)
}

func TestAggregatorZeroRevenueSentinel(t *testing.T) {
	agg := NewAggregator()

	got := agg.Summarize(Inputs{
		Ledger: entity.LedgerTotals{
			PurchasesAmount: 100_00,
			EntryCount:      3,
		},
	})

	assert.True(t, got.Revenue.IsZero())
	assert.Nil(t, got.GrossProfitPct, "gross profit pct must stay undefined at zero revenue")
	assert.Nil(t, got.PourCostPct, "pour cost pct must stay undefined at zero revenue")
	assert.True(t, got.GrossProfit.Equal(types.MustMoney("-100")), "gross profit %s", got.GrossProfit)
}

func TestAggregatorIsReentrant(t *testing.T) {
	agg := NewAggregator()
	in := Inputs{
		LineSalesOverrides: minor(123_45),
		Ledger:             entity.LedgerTotals{PurchasesAmount: 10_00, EntryCount: 1},
	}

	first := agg.Summarize(in)
	second := agg.Summarize(in)
	assert.Equal(t, first, second)
}
