// Package item provides the stock item catalog. Items are the things a bar
// counts and values: spirits, wine, draft beer, bottled stock, juices, syrups.
package item

import (
	"context"

	"github.com/shopspring/decimal"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/core/types"
	"bartally/internal/domain/uom"
)

// Item represents one purchasable stock position.
//
// The measure fields (UnitsPerContainer, ContainerML, ServingML) are the
// item's CURRENT conversion metadata. Stocktake lines snapshot them at count
// time, so editing an item mid-period never rewrites recorded counts.
type Item struct {
	entity.Catalog

	// Category drives the count scheme and valuation math
	Category uom.Category `db:"category" json:"category"`

	// SchemeOverride pins a count scheme different from the category default.
	// Empty means "use the category default".
	SchemeOverride uom.Scheme `db:"scheme_override" json:"schemeOverride,omitempty"`

	// UnitsPerContainer: shots per bottle, pints per keg or bottles per case,
	// depending on the resolved scheme
	UnitsPerContainer int64 `db:"units_per_container" json:"unitsPerContainer"`

	// ContainerML is the bottle volume for ml-carved categories (juice, syrup)
	ContainerML decimal.Decimal `db:"container_ml" json:"containerMl"`

	// ServingML is the poured serving volume for ml-carved categories
	ServingML decimal.Decimal `db:"serving_ml" json:"servingMl"`

	// UnitCost is the cost of one full container in tenant currency.
	// Valuation multiplies container equivalents by this figure.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// SKU is the stock keeping unit used by purchasing and the POS
	SKU *string `db:"sku" json:"sku,omitempty"`

	// Barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// SupplierID is the usual supplier for this item
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	// Aliases are alternative names the staff uses ("Beam" for Jim Beam).
	// The voice resolver matches against name and aliases.
	Aliases []string `db:"aliases" json:"aliases,omitempty"`

	// IsActive indicates the item appears on new stocktake sheets
	IsActive bool `db:"is_active" json:"isActive"`

	// Description is a free-form note
	Description *string `db:"description" json:"description,omitempty"`
}

// NewItem creates a new Item with required fields.
func NewItem(code, name string, category uom.Category) *Item {
	return &Item{
		Catalog:  entity.NewCatalog(code, name),
		Category: category,
		UnitCost: decimal.Zero,
		IsActive: true,
	}
}

// Scheme resolves the effective count scheme: the override when set,
// otherwise the category default.
func (i *Item) Scheme() (uom.Scheme, error) {
	if i.SchemeOverride != "" {
		if !i.SchemeOverride.Valid() {
			return "", apperror.NewInvalidMeasure("unknown count scheme").
				WithDetail("scheme", string(i.SchemeOverride))
		}
		return i.SchemeOverride, nil
	}
	s, ok := uom.DefaultScheme(i.Category)
	if !ok {
		return "", apperror.NewInvalidMeasure("unknown category").
			WithDetail("category", string(i.Category))
	}
	return s, nil
}

// Measure builds the conversion metadata for this item.
func (i *Item) Measure() (uom.Measure, error) {
	scheme, err := i.Scheme()
	if err != nil {
		return uom.Measure{}, err
	}
	m := uom.Measure{
		Scheme:            scheme,
		UnitsPerContainer: i.UnitsPerContainer,
		ContainerML:       i.ContainerML,
		ServingML:         i.ServingML,
	}
	if err := m.Validate(); err != nil {
		return uom.Measure{}, err
	}
	return m, nil
}

// Validate implements entity.Validatable interface.
func (i *Item) Validate(ctx context.Context) error {
	if err := i.Catalog.Validate(ctx); err != nil {
		return err
	}

	// Folders only group items; they carry no measure or cost.
	if i.IsFolder {
		return nil
	}

	if !i.Category.Valid() {
		return apperror.NewValidation("invalid category").
			WithDetail("field", "category").
			WithDetail("value", string(i.Category))
	}

	if _, err := i.Measure(); err != nil {
		return err
	}

	if i.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}

	return nil
}

// SearchTerms returns the strings the voice resolver matches against.
func (i *Item) SearchTerms() []string {
	terms := make([]string, 0, len(i.Aliases)+1)
	terms = append(terms, i.Name)
	terms = append(terms, i.Aliases...)
	return terms
}
