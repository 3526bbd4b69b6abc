package alerts

import (
	"context"

	"bartally/internal/core/id"
	"bartally/internal/domain"
)

// Repository defines storage operations for alert rules.
type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, ruleID id.ID) (*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, ruleID id.ID) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Rule], error)
	ListActive(ctx context.Context) ([]*Rule, error)
}
