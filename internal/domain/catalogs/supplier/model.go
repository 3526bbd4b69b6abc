// Package supplier provides the supplier catalog: the wholesalers, breweries
// and distributors a property buys stock from.
package supplier

import (
	"context"
	"regexp"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Supplier represents one vendor referenced by items and purchase entries.
type Supplier struct {
	entity.Catalog

	// ContactPerson is the primary contact name
	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty"`

	// Email is the primary contact email
	Email *string `db:"email" json:"email,omitempty"`

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// VATNumber is the supplier's VAT registration
	VATNumber *string `db:"vat_number" json:"vatNumber,omitempty"`

	// Address is the postal address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive indicates the supplier can be referenced on new entries
	IsActive bool `db:"is_active" json:"isActive"`

	// Comment is a free-form note
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewSupplier creates a new Supplier with required fields.
func NewSupplier(code, name string) *Supplier {
	return &Supplier{
		Catalog:  entity.NewCatalog(code, name),
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}

	if s.Email != nil && *s.Email != "" && !emailRE.MatchString(*s.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}

	return nil
}
