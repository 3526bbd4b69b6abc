// Package alert_repo provides the PostgreSQL implementation for alert rule storage.
// In Database-per-Tenant architecture, TxManager is obtained from context.
package alert_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain"
	"bartally/internal/domain/alerts"
	"bartally/internal/infrastructure/storage/postgres"
)

const rulesTable = "alert_rules"

// RuleRepo implements alerts.Repository.
type RuleRepo struct {
	selectCols []string
}

// NewRuleRepo creates a new alert rule repository.
func NewRuleRepo() *RuleRepo {
	return &RuleRepo{
		selectCols: postgres.ExtractDBColumns[alerts.Rule](),
	}
}

func (r *RuleRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

func (r *RuleRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *RuleRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(r.selectCols...).
		From(rulesTable)
}

// Create inserts a new rule.
func (r *RuleRepo) Create(ctx context.Context, rule *alerts.Rule) error {
	data := postgres.StructToMap(rule)

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder().
		Insert(rulesTable).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", rulesTable, err)
	}

	return nil
}

// GetByID retrieves a rule by ID.
func (r *RuleRepo) GetByID(ctx context.Context, ruleID id.ID) (*alerts.Rule, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": ruleID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rule := &alerts.Rule{}
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, rule, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(rulesTable, ruleID.String())
		}
		return nil, fmt.Errorf("get rule: %w", err)
	}

	return rule, nil
}

// Update modifies an existing rule with optimistic locking.
func (r *RuleRepo) Update(ctx context.Context, rule *alerts.Rule) error {
	data := postgres.StructToMap(rule)

	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("rule has no 'id' field")
	}

	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("rule has no 'version' field or it is not an int")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "version" {
			continue
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder().
		Update(rulesTable).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", rulesTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(rulesTable, entityID)
	}

	return nil
}

// Delete removes a rule.
func (r *RuleRepo) Delete(ctx context.Context, ruleID id.ID) error {
	q := r.builder().
		Delete(rulesTable).
		Where(squirrel.Eq{"id": ruleID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", rulesTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(rulesTable, ruleID.String())
	}

	return nil
}

// List retrieves rules with filtering and pagination.
func (r *RuleRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*alerts.Rule], error) {
	result := domain.ListResult[*alerts.Rule]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	countQ := r.builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("name ASC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select rules: %w", err)
	}

	return result, nil
}

// ListActive retrieves all enabled rules. Called on every period close.
func (r *RuleRepo) ListActive(ctx context.Context) ([]*alerts.Rule, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rules []*alerts.Rule
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rules, sql, args...); err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	return rules, nil
}

var _ alerts.Repository = (*RuleRepo)(nil)
