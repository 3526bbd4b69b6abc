package security

import (
	"context"
	"time"

	"bartally/internal/core/apperror"
)

// BackdatePolicy defines rules for backdated ledger records and sheets.
// Different tenants may have different policies (strict vs flexible).
type BackdatePolicy interface {
	// CanRecord checks if a ledger record with the given business date is accepted
	CanRecord(ctx context.Context, occurredAt time.Time) error

	// CanModify checks if an entity dated in the past can still be modified
	CanModify(ctx context.Context, date time.Time) error

	// ClosedBefore returns the date until which records are refused
	ClosedBefore(ctx context.Context) time.Time
}

// StrictPolicy refuses any record dated inside the closed horizon.
// Used by properties with hard month-end cutoffs.
type StrictPolicy struct {
	closedUntil time.Time
}

// NewStrictPolicy creates policy that refuses records before closedUntil.
func NewStrictPolicy(closedUntil time.Time) *StrictPolicy {
	return &StrictPolicy{closedUntil: closedUntil}
}

func (p *StrictPolicy) CanRecord(ctx context.Context, occurredAt time.Time) error {
	if occurredAt.Before(p.closedUntil) {
		return apperror.NewPeriodLocked(p.closedUntil.Format("2006-01"))
	}
	return nil
}

func (p *StrictPolicy) CanModify(ctx context.Context, date time.Time) error {
	return p.CanRecord(ctx, date)
}

func (p *StrictPolicy) ClosedBefore(ctx context.Context) time.Time {
	return p.closedUntil
}

// FlexiblePolicy allows backdated records with warnings.
// Suitable for development and small properties.
type FlexiblePolicy struct {
	warningThreshold time.Duration // Warn if older than this
	closedUntil      time.Time     // Hard limit
}

// NewFlexiblePolicy creates policy with soft warnings.
func NewFlexiblePolicy(warningThreshold time.Duration, closedUntil time.Time) *FlexiblePolicy {
	return &FlexiblePolicy{
		warningThreshold: warningThreshold,
		closedUntil:      closedUntil,
	}
}

func (p *FlexiblePolicy) CanRecord(ctx context.Context, occurredAt time.Time) error {
	if !p.closedUntil.IsZero() && occurredAt.Before(p.closedUntil) {
		return apperror.NewPeriodLocked(p.closedUntil.Format("2006-01"))
	}
	// Soft warning would be logged or returned as warning, not error
	return nil
}

func (p *FlexiblePolicy) CanModify(ctx context.Context, date time.Time) error {
	return p.CanRecord(ctx, date)
}

func (p *FlexiblePolicy) ClosedBefore(ctx context.Context) time.Time {
	return p.closedUntil
}

// IsBackdatedWarning checks if operation deserves a warning.
func (p *FlexiblePolicy) IsBackdatedWarning(date time.Time) bool {
	if p.warningThreshold == 0 {
		return false
	}
	return time.Since(date) > p.warningThreshold
}

// OpenPolicy allows all operations (for development/testing).
type OpenPolicy struct{}

func (OpenPolicy) CanRecord(ctx context.Context, occurredAt time.Time) error { return nil }
func (OpenPolicy) CanModify(ctx context.Context, date time.Time) error       { return nil }
func (OpenPolicy) ClosedBefore(ctx context.Context) time.Time                { return time.Time{} }
