// Package uom converts raw bar counts (containers + partials) to canonical
// servings and back. Every category resolves to a count scheme; the scheme
// table in the registry is the only place that knows category-specific math.
package uom

import (
	"github.com/shopspring/decimal"

	"bartally/internal/core/apperror"
)

// Category is the coarse stock classification that drives valuation.
type Category string

const (
	CategorySpirits   Category = "spirits"
	CategoryWine      Category = "wine"
	CategoryDraft     Category = "draft"
	CategoryBottled   Category = "bottled"
	CategoryJuice     Category = "juice"
	CategorySyrup     Category = "syrup"
	CategorySoftDrink Category = "soft_drink"
	CategoryMineral   Category = "mineral"
)

// Valid reports whether the category is known.
func (c Category) Valid() bool {
	_, ok := defaultSchemes[c]
	return ok
}

// Scheme selects the conversion formula. Items inherit the default scheme of
// their category; a subcategory tag on the item may override it.
type Scheme string

const (
	// SchemeShots: full bottles + bottle fraction, servings are shots.
	SchemeShots Scheme = "shots"
	// SchemeBottle: full bottles + bottle fraction, servings are bottles.
	SchemeBottle Scheme = "bottle"
	// SchemeKeg: full kegs + absolute pints, servings are pints.
	SchemeKeg Scheme = "keg"
	// SchemeCase: full cases + absolute bottles, servings are bottles.
	SchemeCase Scheme = "case"
	// SchemeBulk: full bottles + bottle fraction, servings carved from ml.
	SchemeBulk Scheme = "bulk"
	// SchemeCaseBulk: full cases + bottles with ml remainder, servings from ml.
	SchemeCaseBulk Scheme = "case_bulk"
)

// Valid reports whether the scheme is known.
func (s Scheme) Valid() bool {
	switch s {
	case SchemeShots, SchemeBottle, SchemeKeg, SchemeCase, SchemeBulk, SchemeCaseBulk:
		return true
	}
	return false
}

var defaultSchemes = map[Category]Scheme{
	CategorySpirits:   SchemeShots,
	CategoryWine:      SchemeBottle,
	CategoryDraft:     SchemeKeg,
	CategoryBottled:   SchemeCase,
	CategoryJuice:     SchemeCaseBulk,
	CategorySyrup:     SchemeBulk,
	CategorySoftDrink: SchemeCase,
	CategoryMineral:   SchemeCase,
}

// DefaultScheme returns the count scheme for a category.
func DefaultScheme(c Category) (Scheme, bool) {
	s, ok := defaultSchemes[c]
	return s, ok
}

// Measure is the conversion metadata for one item, snapshotted onto stocktake
// lines so that catalog edits mid-period never change recorded line math.
type Measure struct {
	// Scheme is the resolved count scheme
	Scheme Scheme `db:"scheme" json:"scheme"`

	// UnitsPerContainer: shots per bottle, pints per keg or bottles per case,
	// depending on the scheme. Pinned to 1 for whole-bottle wine counting.
	UnitsPerContainer int64 `db:"units_per_container" json:"unitsPerContainer"`

	// ContainerML is the bottle volume for ml-carved schemes
	ContainerML decimal.Decimal `db:"container_ml" json:"containerMl"`

	// ServingML is the serving volume for ml-carved schemes
	ServingML decimal.Decimal `db:"serving_ml" json:"servingMl"`
}

// Validate checks that the measure is usable for its scheme.
func (m Measure) Validate() error {
	if !m.Scheme.Valid() {
		return apperror.NewInvalidMeasure("unknown count scheme").
			WithDetail("scheme", string(m.Scheme))
	}

	switch m.Scheme {
	case SchemeBottle:
		if m.UnitsPerContainer != 1 {
			return apperror.NewInvalidMeasure("whole-bottle counting requires units per container of 1").
				WithDetail("units_per_container", m.UnitsPerContainer)
		}
	case SchemeShots, SchemeKeg, SchemeCase:
		if m.UnitsPerContainer < 1 {
			return apperror.NewInvalidMeasure("units per container must be at least 1").
				WithDetail("units_per_container", m.UnitsPerContainer)
		}
	case SchemeBulk:
		if !m.ContainerML.IsPositive() || !m.ServingML.IsPositive() {
			return apperror.NewInvalidMeasure("container and serving volumes must be positive")
		}
	case SchemeCaseBulk:
		if m.UnitsPerContainer < 1 {
			return apperror.NewInvalidMeasure("bottles per case must be at least 1").
				WithDetail("units_per_container", m.UnitsPerContainer)
		}
		if !m.ContainerML.IsPositive() || !m.ServingML.IsPositive() {
			return apperror.NewInvalidMeasure("container and serving volumes must be positive")
		}
	}

	return nil
}
