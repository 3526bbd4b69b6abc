// Package alerts evaluates variance alert rules against stocktake lines.
// Rules are CEL expressions over per-line variance facts; matching lines are
// reported when a period closes.
package alerts

import (
	"context"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
)

// Severity grades a triggered alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid checks if the severity is known.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Rule is one variance alert rule.
//
// Expression is a CEL boolean expression over these variables:
//
//	item           string  item name
//	category       string  item category
//	variance_qty   double  variance in canonical servings (negative = shortage)
//	variance_pct   double  variance percent of expected (0 when expected is 0)
//	variance_value double  variance valuation in currency
//	counted_value  double  counted stock valuation in currency
//
// Example: variance_pct < -5.0 && category == "spirits"
type Rule struct {
	entity.BaseEntity

	Name        string   `db:"name" json:"name"`
	Expression  string   `db:"expression" json:"expression"`
	Severity    Severity `db:"severity" json:"severity"`
	IsActive    bool     `db:"is_active" json:"isActive"`
	Description *string  `db:"description" json:"description,omitempty"`
}

// NewRule creates a new active rule.
func NewRule(name, expression string, severity Severity) *Rule {
	return &Rule{
		BaseEntity: entity.NewBaseEntity(),
		Name:       name,
		Expression: expression,
		Severity:   severity,
		IsActive:   true,
	}
}

// Validate implements entity.Validatable. Expression compilation is checked
// separately by the service, which owns the CEL environment.
func (r *Rule) Validate(ctx context.Context) error {
	if r.Name == "" {
		return apperror.NewValidation("rule name is required").
			WithDetail("field", "name")
	}
	if r.Expression == "" {
		return apperror.NewValidation("rule expression is required").
			WithDetail("field", "expression")
	}
	if !r.Severity.Valid() {
		return apperror.NewValidation("unknown severity").
			WithDetail("severity", string(r.Severity))
	}
	return nil
}

// LineFacts is the variance fact set for one stocktake line, as exposed to
// rule expressions.
type LineFacts struct {
	ItemID        id.ID
	ItemName      string
	Category      string
	VarianceQty   float64
	VariancePct   float64
	VarianceValue float64
	CountedValue  float64
}

// Triggered is one rule match on one line.
type Triggered struct {
	RuleID   id.ID    `json:"ruleId"`
	RuleName string   `json:"ruleName"`
	Severity Severity `json:"severity"`
	ItemID   id.ID    `json:"itemId"`
	ItemName string   `json:"itemName"`
}
