package dto

import (
	"time"

	"bartally/internal/domain/alerts"
)

// CreateAlertRuleRequest creates a variance alert rule.
type CreateAlertRuleRequest struct {
	Name        string          `json:"name" binding:"required"`
	Expression  string          `json:"expression" binding:"required"`
	Severity    alerts.Severity `json:"severity" binding:"required"`
	Description *string         `json:"description"`
	IsActive    *bool           `json:"isActive"`
}

// ToEntity converts request to domain entity.
func (r *CreateAlertRuleRequest) ToEntity() *alerts.Rule {
	rule := alerts.NewRule(r.Name, r.Expression, r.Severity)
	rule.Description = r.Description
	if r.IsActive != nil {
		rule.IsActive = *r.IsActive
	}
	return rule
}

// UpdateAlertRuleRequest updates a variance alert rule.
type UpdateAlertRuleRequest struct {
	Name        string          `json:"name" binding:"required"`
	Expression  string          `json:"expression" binding:"required"`
	Severity    alerts.Severity `json:"severity" binding:"required"`
	Description *string         `json:"description"`
	IsActive    bool            `json:"isActive"`
	Version     int             `json:"version" binding:"required"`
}

// ApplyTo applies updates to existing entity.
func (r *UpdateAlertRuleRequest) ApplyTo(rule *alerts.Rule) {
	rule.Name = r.Name
	rule.Expression = r.Expression
	rule.Severity = r.Severity
	rule.Description = r.Description
	rule.IsActive = r.IsActive
	rule.Version = r.Version
}

// AlertRuleResponse is the response body for an alert rule.
type AlertRuleResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Expression   string          `json:"expression"`
	Severity     alerts.Severity `json:"severity"`
	Description  *string         `json:"description,omitempty"`
	IsActive     bool            `json:"isActive"`
	DeletionMark bool            `json:"deletionMark"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// FromAlertRule creates response DTO from domain entity.
func FromAlertRule(rule *alerts.Rule) *AlertRuleResponse {
	return &AlertRuleResponse{
		ID:           rule.ID.String(),
		Name:         rule.Name,
		Expression:   rule.Expression,
		Severity:     rule.Severity,
		Description:  rule.Description,
		IsActive:     rule.IsActive,
		DeletionMark: rule.DeletionMark,
		Version:      rule.Version,
		CreatedAt:    rule.CreatedAt,
		UpdatedAt:    rule.UpdatedAt,
	}
}

// CheckExpressionRequest validates a CEL expression without saving a rule.
type CheckExpressionRequest struct {
	Expression string `json:"expression" binding:"required"`
}
