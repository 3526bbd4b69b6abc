package uom

import (
	"github.com/shopspring/decimal"

	"bartally/internal/core/apperror"
)

// Count is a raw stocktake entry: whole containers plus a partial.
// The meaning of Partial depends on the scheme: a container fraction in [0,1)
// for shots/bottle/bulk, an absolute unit count (pints, bottles) for keg/case,
// and bottles with a fractional ml remainder for case_bulk.
type Count struct {
	Full    decimal.Decimal `json:"full"`
	Partial decimal.Decimal `json:"partial"`
}

// NewCount builds a Count from its parts.
func NewCount(full, partial decimal.Decimal) Count {
	return Count{Full: full, Partial: partial}
}

// Display is the reverse decomposition of canonical servings back into the
// count form the bar staff works in. Exact for integer-unit schemes; ml-carved
// schemes round the partial to 2 decimals.
type Display struct {
	Full    int64           `json:"full"`
	Partial decimal.Decimal `json:"partial"`
}

// Conversion is the forward result for one count.
type Conversion struct {
	// Servings is the canonical quantity (shots, bottles, pints or servings)
	Servings decimal.Decimal

	// Containers is the container-equivalent quantity. Valuation multiplies
	// this by the container unit cost; servings never enter valuation.
	Containers decimal.Decimal
}

// converter is one scheme strategy.
type converter interface {
	// validate rejects counts the scheme cannot express
	validate(m Measure, c Count) error

	// normalize rewrites a count into canonical entry form (case_bulk folds
	// whole-bottle overflow into cases); identity for other schemes
	normalize(m Measure, c Count) Count

	// servings converts a normalized count to canonical servings
	servings(m Measure, c Count) decimal.Decimal

	// containers converts a normalized count to container equivalents
	containers(m Measure, c Count) decimal.Decimal

	// perContainer returns canonical servings held by one full container
	perContainer(m Measure) decimal.Decimal

	// display decomposes canonical servings back into count form
	display(m Measure, servings decimal.Decimal) Display
}

// Registry is the scheme strategy table. Adding a category means adding one
// row here and, at most, one strategy implementation.
type Registry struct {
	schemes map[Scheme]converter
}

// NewRegistry builds the registry with all known schemes wired.
func NewRegistry() *Registry {
	return &Registry{
		schemes: map[Scheme]converter{
			SchemeShots:    fractionScheme{},
			SchemeBottle:   fractionScheme{},
			SchemeKeg:      absoluteScheme{},
			SchemeCase:     absoluteScheme{},
			SchemeBulk:     bulkScheme{},
			SchemeCaseBulk: caseBulkScheme{},
		},
	}
}

// SchemeFor resolves the effective scheme for a category with an optional
// item-level override (subcategory tag).
func (r *Registry) SchemeFor(category Category, override Scheme) (Scheme, error) {
	if override != "" {
		if !override.Valid() {
			return "", apperror.NewInvalidMeasure("unknown count scheme").
				WithDetail("scheme", string(override))
		}
		return override, nil
	}
	s, ok := DefaultScheme(category)
	if !ok {
		return "", apperror.NewInvalidMeasure("unknown category").
			WithDetail("category", string(category))
	}
	return s, nil
}

// Normalize validates a raw count and rewrites it into canonical entry form.
// Stocktake lines store the normalized count, so equal physical stock always
// produces identical stored state regardless of entry mode.
func (r *Registry) Normalize(m Measure, c Count) (Count, error) {
	conv, err := r.strategy(m)
	if err != nil {
		return Count{}, err
	}
	if err := conv.validate(m, c); err != nil {
		return Count{}, err
	}
	return conv.normalize(m, c), nil
}

// Convert validates a raw count and computes canonical servings together with
// container equivalents.
func (r *Registry) Convert(m Measure, c Count) (Conversion, error) {
	conv, err := r.strategy(m)
	if err != nil {
		return Conversion{}, err
	}
	if err := conv.validate(m, c); err != nil {
		return Conversion{}, err
	}
	n := conv.normalize(m, c)
	return Conversion{
		Servings:   conv.servings(m, n),
		Containers: conv.containers(m, n),
	}, nil
}

// ServingsPerContainer returns the canonical servings in one full container.
// Used to turn monetary overrides (amount / unit cost = containers) into
// canonical quantities.
func (r *Registry) ServingsPerContainer(m Measure) (decimal.Decimal, error) {
	conv, err := r.strategy(m)
	if err != nil {
		return decimal.Zero, err
	}
	return conv.perContainer(m), nil
}

// ToDisplay decomposes canonical servings back into the mixed-unit form.
// Negative input is legal: variances display with their sign preserved.
func (r *Registry) ToDisplay(m Measure, servings decimal.Decimal) (Display, error) {
	conv, err := r.strategy(m)
	if err != nil {
		return Display{}, err
	}
	if servings.IsNegative() {
		d := conv.display(m, servings.Neg())
		return Display{Full: -d.Full, Partial: d.Partial.Neg()}, nil
	}
	return conv.display(m, servings), nil
}

func (r *Registry) strategy(m Measure) (converter, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	conv, ok := r.schemes[m.Scheme]
	if !ok {
		return nil, apperror.NewInvalidMeasure("unknown count scheme").
			WithDetail("scheme", string(m.Scheme))
	}
	return conv, nil
}

// validateNonNegative rejects negative or non-integral full counts and
// negative partials. Shared by all schemes.
func validateNonNegative(c Count) error {
	if c.Full.IsNegative() {
		return apperror.NewInvalidQuantity("full", c.Full.String())
	}
	if !c.Full.IsInteger() {
		return apperror.NewInvalidQuantity("full", c.Full.String())
	}
	if c.Partial.IsNegative() {
		return apperror.NewInvalidQuantity("partial", c.Partial.String())
	}
	return nil
}
