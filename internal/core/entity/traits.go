package entity

import (
	"context"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
)

// PeriodAware is a trait for entities owned by a stock period.
// Ownership is a direct reference; nothing in the system matches entities to
// periods by date range.
type PeriodAware struct {
	// PeriodID is the owning stock period
	PeriodID id.ID `db:"period_id" json:"periodId"`
}

// ValidatePeriod ensures a period reference is set.
func (p *PeriodAware) ValidatePeriod(ctx context.Context) error {
	if id.IsNil(p.PeriodID) {
		return apperror.NewValidation("period is required").
			WithDetail("field", "periodId")
	}
	return nil
}

// GetPeriodID returns the owning period ID (useful for interfaces).
func (p *PeriodAware) GetPeriodID() id.ID {
	return p.PeriodID
}

// IPeriodAware is an interface for any entity that belongs to a period.
type IPeriodAware interface {
	GetPeriodID() id.ID
	ValidatePeriod(ctx context.Context) error
}
