package dto

import (
	"encoding/json"
	"time"

	"bartally/internal/core/types"
	"bartally/internal/domain/period"
	"bartally/internal/infrastructure/storage/postgres"
)

// --- Request DTOs ---

// CreatePeriodRequest is the request body for opening a new stock period.
type CreatePeriodRequest struct {
	VenueID   string    `json:"venueId" binding:"required,uuid"`
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// UpdatePeriodRequest is the request body for editing a draft period.
type UpdatePeriodRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// PeriodOverrideRequest sets or clears a period-level manual total.
// A null amount clears the override, dropping that cascade tier.
type PeriodOverrideRequest struct {
	Kind   period.OverrideKind `json:"kind" binding:"required"`
	Amount *types.MinorUnits   `json:"amount"`
}

// --- Response DTOs ---

// PeriodResponse is the response body for a stock period.
type PeriodResponse struct {
	ID                string              `json:"id"`
	VenueID           string              `json:"venueId"`
	Name              string              `json:"name"`
	StartDate         time.Time           `json:"startDate"`
	EndDate           time.Time           `json:"endDate"`
	Status            period.Status       `json:"status"`
	PurchasesOverride *types.MinorUnits   `json:"purchasesOverride,omitempty"`
	SalesOverride     *types.MinorUnits   `json:"salesOverride,omitempty"`
	ClosedAt          *time.Time          `json:"closedAt,omitempty"`
	ClosedBy          *string             `json:"closedBy,omitempty"`
	ReopenedAt        *time.Time          `json:"reopenedAt,omitempty"`
	ReopenedBy        *string             `json:"reopenedBy,omitempty"`
	CloseCycle        int                 `json:"closeCycle"`
	Version           int                 `json:"version"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// FromPeriod creates response DTO from domain entity.
func FromPeriod(p *period.Period) *PeriodResponse {
	return &PeriodResponse{
		ID:                p.ID.String(),
		VenueID:           p.VenueID.String(),
		Name:              p.Name,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		Status:            p.Status,
		PurchasesOverride: p.PurchasesOverride,
		SalesOverride:     p.SalesOverride,
		ClosedAt:          p.ClosedAt,
		ClosedBy:          p.ClosedBy,
		ReopenedAt:        p.ReopenedAt,
		ReopenedBy:        p.ReopenedBy,
		CloseCycle:        p.CloseCycle,
		Version:           p.Version,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// PeriodListResponse wraps a period list with pagination.
type PeriodListResponse struct {
	Items      []*PeriodResponse `json:"items"`
	TotalCount int               `json:"totalCount"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// AuditEntryResponse is one row of an entity's audit trail.
type AuditEntryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	UserID    string          `json:"userId,omitempty"`
	UserEmail string          `json:"userEmail,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromAuditEntry creates response DTO from an audit record.
func FromAuditEntry(e *postgres.AuditEntry) *AuditEntryResponse {
	return &AuditEntryResponse{
		ID:        e.ID.String(),
		Action:    string(e.Action),
		UserID:    e.UserID,
		UserEmail: e.UserEmail,
		Changes:   e.Changes,
		CreatedAt: e.CreatedAt,
	}
}
