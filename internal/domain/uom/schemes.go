package uom

import (
	"github.com/shopspring/decimal"

	"bartally/internal/core/apperror"
)

var one = decimal.NewFromInt(1)

// fractionScheme counts whole containers plus a fraction of one container.
// Covers spirits (servings are shots) and wine (servings are bottles, units
// per container pinned to 1).
type fractionScheme struct{}

func (fractionScheme) validate(m Measure, c Count) error {
	if err := validateNonNegative(c); err != nil {
		return err
	}
	if c.Partial.GreaterThanOrEqual(one) {
		return apperror.NewFractionOutOfRange(string(m.Scheme), c.Partial.String())
	}
	return nil
}

func (fractionScheme) normalize(m Measure, c Count) Count { return c }

func (fractionScheme) servings(m Measure, c Count) decimal.Decimal {
	return c.Full.Add(c.Partial).Mul(decimal.NewFromInt(m.UnitsPerContainer))
}

func (fractionScheme) containers(m Measure, c Count) decimal.Decimal {
	return c.Full.Add(c.Partial)
}

func (fractionScheme) perContainer(m Measure) decimal.Decimal {
	return decimal.NewFromInt(m.UnitsPerContainer)
}

func (fractionScheme) display(m Measure, servings decimal.Decimal) Display {
	containers := servings.Div(decimal.NewFromInt(m.UnitsPerContainer))
	full := containers.Floor()
	return Display{
		Full:    full.IntPart(),
		Partial: containers.Sub(full),
	}
}

// absoluteScheme counts whole containers plus absolute remaining units:
// kegs + pints, or cases + bottles. The partial may exceed 1.0.
type absoluteScheme struct{}

func (absoluteScheme) validate(m Measure, c Count) error {
	return validateNonNegative(c)
}

func (absoluteScheme) normalize(m Measure, c Count) Count { return c }

func (absoluteScheme) servings(m Measure, c Count) decimal.Decimal {
	return c.Full.Mul(decimal.NewFromInt(m.UnitsPerContainer)).Add(c.Partial)
}

func (absoluteScheme) containers(m Measure, c Count) decimal.Decimal {
	upc := decimal.NewFromInt(m.UnitsPerContainer)
	return c.Full.Add(c.Partial.Div(upc))
}

func (absoluteScheme) perContainer(m Measure) decimal.Decimal {
	return decimal.NewFromInt(m.UnitsPerContainer)
}

func (absoluteScheme) display(m Measure, servings decimal.Decimal) Display {
	upc := decimal.NewFromInt(m.UnitsPerContainer)
	full := servings.Div(upc).Floor()
	return Display{
		Full:    full.IntPart(),
		Partial: servings.Sub(full.Mul(upc)),
	}
}

// bulkScheme counts whole bottles plus a bottle fraction, with servings
// carved from milliliters (syrups). Valuation stays on bottle equivalents,
// so the serving size can change without repricing stock.
type bulkScheme struct{}

func (bulkScheme) validate(m Measure, c Count) error {
	if err := validateNonNegative(c); err != nil {
		return err
	}
	if c.Partial.GreaterThanOrEqual(one) {
		return apperror.NewFractionOutOfRange(string(m.Scheme), c.Partial.String())
	}
	return nil
}

func (bulkScheme) normalize(m Measure, c Count) Count { return c }

func (bulkScheme) servings(m Measure, c Count) decimal.Decimal {
	return c.Full.Add(c.Partial).Mul(m.ContainerML).Div(m.ServingML)
}

func (bulkScheme) containers(m Measure, c Count) decimal.Decimal {
	return c.Full.Add(c.Partial)
}

func (bulkScheme) perContainer(m Measure) decimal.Decimal {
	return m.ContainerML.Div(m.ServingML)
}

func (bulkScheme) display(m Measure, servings decimal.Decimal) Display {
	bottles := servings.Mul(m.ServingML).Div(m.ContainerML).Round(2)
	full := bottles.Floor()
	return Display{
		Full:    full.IntPart(),
		Partial: bottles.Sub(full),
	}
}

// caseBulkScheme counts cases plus bottles with a fractional ml remainder
// (juices). Two entry modes are equivalent: cases + bottles, or the whole
// count as bottles in the partial; normalize folds bottle overflow into
// cases before the shared formula runs.
type caseBulkScheme struct{}

func (caseBulkScheme) validate(m Measure, c Count) error {
	return validateNonNegative(c)
}

func (caseBulkScheme) normalize(m Measure, c Count) Count {
	wholeBottles := c.Partial.Floor().IntPart()
	if wholeBottles < m.UnitsPerContainer {
		return c
	}
	frac := c.Partial.Sub(c.Partial.Floor())
	carry := wholeBottles / m.UnitsPerContainer
	rest := wholeBottles % m.UnitsPerContainer
	return Count{
		Full:    c.Full.Add(decimal.NewFromInt(carry)),
		Partial: decimal.NewFromInt(rest).Add(frac),
	}
}

func (caseBulkScheme) servings(m Measure, c Count) decimal.Decimal {
	bottles := c.Partial.Floor()
	remainderML := c.Partial.Sub(bottles).Mul(m.ContainerML)
	wholeBottles := c.Full.Mul(decimal.NewFromInt(m.UnitsPerContainer)).Add(bottles)
	totalML := wholeBottles.Mul(m.ContainerML).Add(remainderML)
	return totalML.Div(m.ServingML)
}

func (caseBulkScheme) containers(m Measure, c Count) decimal.Decimal {
	upc := decimal.NewFromInt(m.UnitsPerContainer)
	totalBottles := c.Full.Mul(upc).Add(c.Partial)
	return totalBottles.Div(upc)
}

func (caseBulkScheme) perContainer(m Measure) decimal.Decimal {
	return decimal.NewFromInt(m.UnitsPerContainer).Mul(m.ContainerML).Div(m.ServingML)
}

func (caseBulkScheme) display(m Measure, servings decimal.Decimal) Display {
	upc := decimal.NewFromInt(m.UnitsPerContainer)
	totalML := servings.Mul(m.ServingML)
	bottles := totalML.Div(m.ContainerML).Round(2)
	full := bottles.Div(upc).Floor()
	return Display{
		Full:    full.IntPart(),
		Partial: bottles.Sub(full.Mul(upc)),
	}
}
