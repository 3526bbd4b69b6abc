// Package period provides the stock period: the counting window every
// stocktake, ledger entry and reconciliation total hangs off.
package period

import (
	"context"
	"time"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/core/types"
)

// Status of a stock period.
type Status string

const (
	// StatusDraft: counts and overrides mutable, totals recomputed on demand
	StatusDraft Status = "draft"
	// StatusClosed: totals frozen, every mutation rejected
	StatusClosed Status = "closed"
)

// OverrideKind selects which period-level manual total an override sets.
// Waste has no period-level override; operators enter waste per line.
type OverrideKind string

const (
	OverridePurchases OverrideKind = "purchases"
	OverrideSales     OverrideKind = "sales"
)

// Period represents one counting window for a venue.
//
// ClosedAt/ClosedBy and ReopenedAt/ReopenedBy hold the most recent transition
// only; reopening retains the prior close fields. The full multi-cycle trail
// lives in the append-only audit log.
type Period struct {
	entity.BaseDocument

	// VenueID is the owning venue
	VenueID id.ID `db:"venue_id" json:"venueId"`

	// Name is the display label ("August 2026")
	Name string `db:"name" json:"name"`

	// StartDate is the first business day of the window
	StartDate time.Time `db:"start_date" json:"startDate"`

	// EndDate is the last business day of the window (inclusive)
	EndDate time.Time `db:"end_date" json:"endDate"`

	Status Status `db:"status" json:"status"`

	// PurchasesOverride is the period-level manual purchases total in minor
	// units. Highest COGS tier when set.
	PurchasesOverride *types.MinorUnits `db:"purchases_override" json:"purchasesOverride,omitempty"`

	// SalesOverride is the period-level manual sales total in minor units.
	// Middle revenue tier when set.
	SalesOverride *types.MinorUnits `db:"sales_override" json:"salesOverride,omitempty"`

	ClosedAt   *time.Time `db:"closed_at" json:"closedAt,omitempty"`
	ClosedBy   *string    `db:"closed_by" json:"closedBy,omitempty"`
	ReopenedAt *time.Time `db:"reopened_at" json:"reopenedAt,omitempty"`
	ReopenedBy *string    `db:"reopened_by" json:"reopenedBy,omitempty"`

	// CloseCycle counts completed closes. Pairs with the stocktake's
	// approved version so frozen snapshots can be told apart across reopens.
	CloseCycle int `db:"close_cycle" json:"closeCycle"`
}

// New creates a draft period for a venue.
func New(venueID id.ID, name string, start, end time.Time) *Period {
	return &Period{
		BaseDocument: entity.NewBaseDocument(),
		VenueID:      venueID,
		Name:         name,
		StartDate:    start,
		EndDate:      end,
		Status:       StatusDraft,
	}
}

// Validate implements entity.Validatable.
func (p *Period) Validate(ctx context.Context) error {
	if id.IsNil(p.VenueID) {
		return apperror.NewValidation("venue is required").
			WithDetail("field", "venueId")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return apperror.NewValidation("start and end dates are required")
	}
	if p.EndDate.Before(p.StartDate) {
		return apperror.NewValidation("end date must not precede start date").
			WithDetail("startDate", p.StartDate).
			WithDetail("endDate", p.EndDate)
	}
	if !isValidStatus(p.Status) {
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(p.Status))
	}
	return nil
}

// IsClosed returns true when the period is closed.
func (p *Period) IsClosed() bool {
	return p.Status == StatusClosed
}

// CanMutate rejects count and override mutations on a closed period.
func (p *Period) CanMutate() error {
	if p.IsClosed() {
		return apperror.NewPeriodLocked(p.Label())
	}
	return nil
}

// Contains reports whether a business timestamp falls inside the window.
// EndDate is inclusive at date granularity.
func (p *Period) Contains(t time.Time) bool {
	d := t.UTC()
	return !d.Before(p.StartDate) && d.Before(p.EndDate.AddDate(0, 0, 1))
}

// MarkClosed transitions draft -> closed. Fails with ConflictingTransition
// when the period is already closed (the caller lost a concurrent close).
func (p *Period) MarkClosed(actor string) error {
	if p.IsClosed() {
		return apperror.NewConflictingTransition(p.Label())
	}
	now := time.Now().UTC()
	p.Status = StatusClosed
	p.ClosedAt = &now
	p.ClosedBy = &actor
	p.CloseCycle++
	p.Touch()
	return nil
}

// MarkReopened transitions closed -> draft. The prior close audit fields are
// retained; counts are not reset.
func (p *Period) MarkReopened(actor string) error {
	if !p.IsClosed() {
		return apperror.NewNotClosed(p.Label())
	}
	now := time.Now().UTC()
	p.Status = StatusDraft
	p.ReopenedAt = &now
	p.ReopenedBy = &actor
	p.Touch()
	return nil
}

// SetOverride sets or clears (amount == nil) a period-level manual total.
func (p *Period) SetOverride(kind OverrideKind, amount *types.MinorUnits) error {
	if amount != nil && amount.IsNegative() {
		return apperror.NewInvalidQuantity("amount", int64(*amount))
	}
	switch kind {
	case OverridePurchases:
		p.PurchasesOverride = amount
	case OverrideSales:
		p.SalesOverride = amount
	default:
		return apperror.NewValidation("invalid override kind for period scope").
			WithDetail("kind", string(kind))
	}
	p.Touch()
	return nil
}

// Label returns the human identifier used in errors and audit entries.
func (p *Period) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID.String()
}

func isValidStatus(s Status) bool {
	return s == StatusDraft || s == StatusClosed
}
