package entity

import (
	"context"
	"time"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
)

// Document is the base type for operational records (stocktake sheets).
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+period)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Approved indicates the document is frozen; its lines are locked
	Approved bool `db:"approved" json:"approved"`

	// ApprovedVersion tracks approval iterations (incremented on each approve,
	// so snapshots taken at approval time can be told apart after a reopen)
	ApprovedVersion int `db:"approved_version" json:"approvedVersion"`

	// VenueID is the owning venue (bar, cellar, pool bar)
	VenueID id.ID `db:"venue_id" json:"venueId"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
// In Database-per-Tenant architecture, tenantID is not required.
func NewDocument(venueID id.ID) Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		VenueID:      venueID,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.VenueID) {
		return apperror.NewValidation("venue is required").
			WithDetail("field", "venueId")
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}

// CanModify checks if document can be modified.
// Approved documents require unapproving (or a period reopen) first.
func (d *Document) CanModify() error {
	if d.Approved {
		return apperror.NewLineLocked(d.ID.String())
	}
	return nil
}

// MarkApproved sets the approved flag and increments the approval version.
func (d *Document) MarkApproved() {
	d.Approved = true
	d.ApprovedVersion++
	d.Touch()
}

// MarkUnapproved clears the approved flag.
func (d *Document) MarkUnapproved() {
	d.Approved = false
	d.Touch()
}

// IsBackdated checks if document date is in the past.
func (d *Document) IsBackdated() bool {
	return d.Date.Before(time.Now().UTC().Truncate(24 * time.Hour))
}

// GetID returns the document ID.
func (d *Document) GetID() id.ID {
	return d.ID
}

// IsApproved returns true if document is currently approved.
func (d *Document) IsApproved() bool {
	return d.Approved
}

// CanApprove validates if document can be approved.
// Override in specific document types if additional validation is needed.
func (d *Document) CanApprove(ctx context.Context) error {
	return d.Validate(ctx)
}
