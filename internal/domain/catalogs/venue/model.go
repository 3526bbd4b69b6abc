// Package venue provides the venue catalog. Venues are the stock locations
// of a property: bars, cellars, restaurant service areas.
package venue

import (
	"context"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
)

// VenueType defines the kind of outlet.
type VenueType string

const (
	TypeBar        VenueType = "bar"
	TypeCellar     VenueType = "cellar"
	TypeRestaurant VenueType = "restaurant"
	TypePoolside   VenueType = "poolside"
	TypeMinibar    VenueType = "minibar"
)

// Venue represents one counted stock location within the property.
type Venue struct {
	entity.Catalog

	// Type defines the outlet category
	Type VenueType `db:"type" json:"type"`

	// Location is a human hint: "lobby level", "basement cellar"
	Location *string `db:"location" json:"location,omitempty"`

	// IsActive indicates the venue takes new periods and ledger entries
	IsActive bool `db:"is_active" json:"isActive"`

	// IsDefault marks the venue preselected in counting clients
	IsDefault bool `db:"is_default" json:"isDefault"`

	// Description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewVenue creates a new Venue with required fields.
func NewVenue(code, name string, vType VenueType) *Venue {
	return &Venue{
		Catalog:  entity.NewCatalog(code, name),
		Type:     vType,
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (v *Venue) Validate(ctx context.Context) error {
	if err := v.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidVenueType(v.Type) {
		return apperror.NewValidation("invalid venue type").
			WithDetail("field", "type").
			WithDetail("value", string(v.Type))
	}

	return nil
}

// CanCount returns true if stocktakes may be recorded against the venue.
func (v *Venue) CanCount() bool {
	return v.IsActive && !v.IsFolder
}

func isValidVenueType(t VenueType) bool {
	switch t {
	case TypeBar, TypeCellar, TypeRestaurant, TypePoolside, TypeMinibar:
		return true
	}
	return false
}
