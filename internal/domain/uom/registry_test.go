package uom

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/apperror"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func requireDecimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(d(want)), "want %s, got %s", want, got.String())
}

func TestRegistryConvert(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name           string
		measure        Measure
		count          Count
		wantServings   string
		wantContainers string
	}{
		{
			name:           "wine whole bottles plus fraction",
			measure:        Measure{Scheme: SchemeBottle, UnitsPerContainer: 1},
			count:          Count{Full: d("10"), Partial: d("0.5")},
			wantServings:   "10.5",
			wantContainers: "10.5",
		},
		{
			name:           "spirits quarter bottle at 20 shots",
			measure:        Measure{Scheme: SchemeShots, UnitsPerContainer: 20},
			count:          Count{Full: d("3"), Partial: d("0.25")},
			wantServings:   "65",
			wantContainers: "3.25",
		},
		{
			name:           "spirits zero count",
			measure:        Measure{Scheme: SchemeShots, UnitsPerContainer: 25},
			count:          Count{Full: d("0"), Partial: d("0")},
			wantServings:   "0",
			wantContainers: "0",
		},
		{
			name:           "draft kegs plus absolute pints",
			measure:        Measure{Scheme: SchemeKeg, UnitsPerContainer: 88},
			count:          Count{Full: d("2"), Partial: d("10.5")},
			wantServings:   "186.5",
			wantContainers: "2.1193181818181818",
		},
		{
			name:           "bottled cases plus absolute bottles",
			measure:        Measure{Scheme: SchemeCase, UnitsPerContainer: 24},
			count:          Count{Full: d("5"), Partial: d("7")},
			wantServings:   "127",
			wantContainers: "5.2916666666666667",
		},
		{
			name: "syrup bottles carved into servings",
			measure: Measure{
				Scheme:      SchemeBulk,
				ContainerML: d("700"),
				ServingML:   d("35"),
			},
			count:          Count{Full: d("4"), Partial: d("0.5")},
			wantServings:   "90",
			wantContainers: "4.5",
		},
		{
			name: "juice cases plus bottles with ml remainder",
			measure: Measure{
				Scheme:            SchemeCaseBulk,
				UnitsPerContainer: 12,
				ContainerML:       d("1000"),
				ServingML:         d("200"),
			},
			count:          Count{Full: d("3"), Partial: d("3.5")},
			wantServings:   "197.5",
			wantContainers: "3.2916666666666667",
		},
		{
			name: "juice entered as raw bottles normalizes through cases",
			measure: Measure{
				Scheme:            SchemeCaseBulk,
				UnitsPerContainer: 12,
				ContainerML:       d("1000"),
				ServingML:         d("200"),
			},
			count:          Count{Full: d("0"), Partial: d("37.5")},
			wantServings:   "187.5",
			wantContainers: "3.125",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Convert(tt.measure, tt.count)
			require.NoError(t, err)
			requireDecimalEqual(t, tt.wantServings, got.Servings)
			requireDecimalEqual(t, tt.wantContainers, got.Containers)
		})
	}
}

func TestRegistryConvertValidation(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name     string
		measure  Measure
		count    Count
		wantCode string
	}{
		{
			name:     "negative full",
			measure:  Measure{Scheme: SchemeShots, UnitsPerContainer: 20},
			count:    Count{Full: d("-1"), Partial: d("0")},
			wantCode: apperror.CodeInvalidQuantity,
		},
		{
			name:     "fractional full",
			measure:  Measure{Scheme: SchemeShots, UnitsPerContainer: 20},
			count:    Count{Full: d("1.5"), Partial: d("0")},
			wantCode: apperror.CodeInvalidQuantity,
		},
		{
			name:     "negative partial",
			measure:  Measure{Scheme: SchemeKeg, UnitsPerContainer: 88},
			count:    Count{Full: d("1"), Partial: d("-0.5")},
			wantCode: apperror.CodeInvalidQuantity,
		},
		{
			name:     "spirits partial at one",
			measure:  Measure{Scheme: SchemeShots, UnitsPerContainer: 20},
			count:    Count{Full: d("3"), Partial: d("1")},
			wantCode: apperror.CodeFractionOutOfRange,
		},
		{
			name:     "wine partial above one",
			measure:  Measure{Scheme: SchemeBottle, UnitsPerContainer: 1},
			count:    Count{Full: d("10"), Partial: d("1.25")},
			wantCode: apperror.CodeFractionOutOfRange,
		},
		{
			name: "syrup partial above one",
			measure: Measure{
				Scheme:      SchemeBulk,
				ContainerML: d("700"),
				ServingML:   d("35"),
			},
			count:    Count{Full: d("2"), Partial: d("1.5")},
			wantCode: apperror.CodeFractionOutOfRange,
		},
		{
			name:     "wine uom other than one",
			measure:  Measure{Scheme: SchemeBottle, UnitsPerContainer: 6},
			count:    Count{Full: d("1"), Partial: d("0")},
			wantCode: apperror.CodeInvalidMeasure,
		},
		{
			name: "zero serving volume",
			measure: Measure{
				Scheme:      SchemeBulk,
				ContainerML: d("700"),
				ServingML:   d("0"),
			},
			count:    Count{Full: d("1"), Partial: d("0")},
			wantCode: apperror.CodeInvalidMeasure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Convert(tt.measure, tt.count)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, tt.wantCode),
				"want code %s, got %v", tt.wantCode, err)
		})
	}
}

func TestRegistryConvertAbsolutePartialsExceedOne(t *testing.T) {
	r := NewRegistry()

	// Absolute-count schemes take partials well above 1.0 without complaint.
	_, err := r.Convert(
		Measure{Scheme: SchemeKeg, UnitsPerContainer: 88},
		Count{Full: d("0"), Partial: d("61.5")},
	)
	require.NoError(t, err)

	_, err = r.Convert(
		Measure{Scheme: SchemeCase, UnitsPerContainer: 24},
		Count{Full: d("2"), Partial: d("30")},
	)
	require.NoError(t, err)
}

func TestRegistryNormalize(t *testing.T) {
	r := NewRegistry()
	m := Measure{
		Scheme:            SchemeCaseBulk,
		UnitsPerContainer: 12,
		ContainerML:       d("1000"),
		ServingML:         d("200"),
	}

	tests := []struct {
		name        string
		count       Count
		wantFull    string
		wantPartial string
	}{
		{"already canonical", Count{Full: d("3"), Partial: d("3.5")}, "3", "3.5"},
		{"raw bottle entry", Count{Full: d("0"), Partial: d("37.5")}, "3", "1.5"},
		{"overflow on top of cases", Count{Full: d("2"), Partial: d("25.25")}, "4", "1.25"},
		{"exact case boundary", Count{Full: d("0"), Partial: d("12")}, "1", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Normalize(m, tt.count)
			require.NoError(t, err)
			requireDecimalEqual(t, tt.wantFull, got.Full)
			requireDecimalEqual(t, tt.wantPartial, got.Partial)
		})
	}

	// Entry modes are equivalent: both produce identical servings.
	a, err := r.Convert(m, Count{Full: d("3"), Partial: d("1.5")})
	require.NoError(t, err)
	b, err := r.Convert(m, Count{Full: d("0"), Partial: d("37.5")})
	require.NoError(t, err)
	requireDecimalEqual(t, a.Servings.String(), b.Servings)
}

func TestRegistryToDisplay(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name        string
		measure     Measure
		servings    string
		wantFull    int64
		wantPartial string
	}{
		{
			name:        "spirits back to bottles",
			measure:     Measure{Scheme: SchemeShots, UnitsPerContainer: 20},
			servings:    "65",
			wantFull:    3,
			wantPartial: "0.25",
		},
		{
			name:        "wine back to bottles",
			measure:     Measure{Scheme: SchemeBottle, UnitsPerContainer: 1},
			servings:    "10.5",
			wantFull:    10,
			wantPartial: "0.5",
		},
		{
			name:        "draft back to kegs and pints",
			measure:     Measure{Scheme: SchemeKeg, UnitsPerContainer: 88},
			servings:    "186.5",
			wantFull:    2,
			wantPartial: "10.5",
		},
		{
			name: "syrup back to bottles",
			measure: Measure{
				Scheme:      SchemeBulk,
				ContainerML: d("700"),
				ServingML:   d("35"),
			},
			servings:    "90",
			wantFull:    4,
			wantPartial: "0.5",
		},
		{
			name: "juice back to cases and bottles",
			measure: Measure{
				Scheme:            SchemeCaseBulk,
				UnitsPerContainer: 12,
				ContainerML:       d("1000"),
				ServingML:         d("200"),
			},
			servings:    "197.5",
			wantFull:    3,
			wantPartial: "3.5",
		},
		{
			name:        "negative variance keeps its sign",
			measure:     Measure{Scheme: SchemeShots, UnitsPerContainer: 20},
			servings:    "-65",
			wantFull:    -3,
			wantPartial: "-0.25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ToDisplay(tt.measure, d(tt.servings))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFull, got.Full)
			requireDecimalEqual(t, tt.wantPartial, got.Partial)
		})
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name    string
		measure Measure
		count   Count
	}{
		{"spirits", Measure{Scheme: SchemeShots, UnitsPerContainer: 28}, Count{Full: d("7"), Partial: d("0.75")}},
		{"wine", Measure{Scheme: SchemeBottle, UnitsPerContainer: 1}, Count{Full: d("14"), Partial: d("0.25")}},
		{"draft", Measure{Scheme: SchemeKeg, UnitsPerContainer: 88}, Count{Full: d("3"), Partial: d("42.5")}},
		{"bottled", Measure{Scheme: SchemeCase, UnitsPerContainer: 12}, Count{Full: d("9"), Partial: d("11")}},
		{"syrup", Measure{Scheme: SchemeBulk, ContainerML: d("750"), ServingML: d("25")}, Count{Full: d("6"), Partial: d("0.4")}},
		{"juice", Measure{Scheme: SchemeCaseBulk, UnitsPerContainer: 24, ContainerML: d("330"), ServingML: d("110")}, Count{Full: d("2"), Partial: d("17.5")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := r.Convert(tt.measure, tt.count)
			require.NoError(t, err)

			disp, err := r.ToDisplay(tt.measure, conv.Servings)
			require.NoError(t, err)

			requireDecimalEqual(t, tt.count.Full.String(), decimal.NewFromInt(disp.Full))
			// Partials recover to 2-decimal precision on ml-carved schemes,
			// exactly elsewhere.
			assert.True(t, disp.Partial.Sub(tt.count.Partial).Abs().LessThanOrEqual(d("0.01")),
				"partial drifted: want %s, got %s", tt.count.Partial, disp.Partial)
		})
	}
}

func TestContainersIndependentOfServingSize(t *testing.T) {
	r := NewRegistry()

	count := Count{Full: d("4"), Partial: d("0.5")}
	base := Measure{Scheme: SchemeBulk, ContainerML: d("700"), ServingML: d("35")}
	resized := Measure{Scheme: SchemeBulk, ContainerML: d("700"), ServingML: d("25")}

	a, err := r.Convert(base, count)
	require.NoError(t, err)
	b, err := r.Convert(resized, count)
	require.NoError(t, err)

	// Servings shift with the pour size; the valuation basis must not.
	assert.False(t, a.Servings.Equal(b.Servings))
	requireDecimalEqual(t, a.Containers.String(), b.Containers)
}

func TestServingsPerContainer(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name    string
		measure Measure
		want    string
	}{
		{"spirits", Measure{Scheme: SchemeShots, UnitsPerContainer: 20}, "20"},
		{"wine", Measure{Scheme: SchemeBottle, UnitsPerContainer: 1}, "1"},
		{"draft", Measure{Scheme: SchemeKeg, UnitsPerContainer: 88}, "88"},
		{"bottled", Measure{Scheme: SchemeCase, UnitsPerContainer: 24}, "24"},
		{"syrup", Measure{Scheme: SchemeBulk, ContainerML: d("700"), ServingML: d("35")}, "20"},
		{"juice", Measure{Scheme: SchemeCaseBulk, UnitsPerContainer: 12, ContainerML: d("1000"), ServingML: d("200")}, "60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ServingsPerContainer(tt.measure)
			require.NoError(t, err)
			requireDecimalEqual(t, tt.want, got)
		})
	}
}

func TestSchemeForCategory(t *testing.T) {
	r := NewRegistry()

	for cat, want := range map[Category]Scheme{
		CategorySpirits:   SchemeShots,
		CategoryWine:      SchemeBottle,
		CategoryDraft:     SchemeKeg,
		CategoryBottled:   SchemeCase,
		CategoryJuice:     SchemeCaseBulk,
		CategorySyrup:     SchemeBulk,
		CategorySoftDrink: SchemeCase,
		CategoryMineral:   SchemeCase,
	} {
		got, err := r.SchemeFor(cat, "")
		require.NoError(t, err)
		assert.Equal(t, want, got, "category %s", cat)
	}

	// Subcategory tag wins over the category default.
	got, err := r.SchemeFor(CategoryJuice, SchemeCase)
	require.NoError(t, err)
	assert.Equal(t, SchemeCase, got)

	_, err = r.SchemeFor(Category("cigars"), "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidMeasure))
}
