// Package report_repo provides PostgreSQL implementations for report repositories.
// In Database-per-Tenant architecture, TxManager is obtained from context.
package report_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"

	"bartally/internal/domain/reports"
	"bartally/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type ReportRepo struct{}

// NewReportRepo creates a new report repository.
func NewReportRepo() *ReportRepo {
	return &ReportRepo{}
}

// getTxManager retrieves TxManager from context.
func (r *ReportRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// GetCategoryBreakdown aggregates the period's count sheet lines by category.
func (r *ReportRepo) GetCategoryBreakdown(ctx context.Context, filter reports.CategoryBreakdownFilter) (*reports.CategoryBreakdown, error) {
	query := `
		SELECT
			l.category,
			COUNT(*) as line_count,
			COUNT(*) FILTER (WHERE l.counted) as counted_lines,
			COALESCE(SUM(l.counted_value) FILTER (WHERE l.counted), 0)::float8 as counted_value,
			COALESCE(SUM(l.variance_value) FILTER (WHERE l.counted), 0)::float8 as variance_value
		FROM doc_stocktake_lines l
		JOIN doc_stocktakes d ON l.document_id = d.id
		WHERE d.period_id = $1 AND d.deletion_mark = false
		GROUP BY l.category
	`
	if !filter.IncludeUncounted {
		query += " HAVING COUNT(*) FILTER (WHERE l.counted) > 0"
	}
	query += " ORDER BY l.category"

	var items []reports.CategoryBreakdownItem
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, query, filter.PeriodID); err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}

	// Calculate totals
	var totalCounted, totalVariance float64
	for _, item := range items {
		totalCounted += item.CountedValue
		totalVariance += item.VarianceValue
	}

	return &reports.CategoryBreakdown{
		PeriodID:           filter.PeriodID,
		Items:              items,
		TotalItems:         len(items),
		TotalCountedValue:  totalCounted,
		TotalVarianceValue: totalVariance,
	}, nil
}

// GetVarianceTrend charts variance totals across the venue's most recent
// closed periods, optionally narrowed to one item.
func (r *ReportRepo) GetVarianceTrend(ctx context.Context, filter reports.VarianceTrendFilter) (*reports.VarianceTrend, error) {
	args := []any{filter.VenueID}
	argIndex := 2

	query := `
		SELECT
			p.id as period_id,
			p.name as period_name,
			p.end_date,
			COALESCE(SUM(l.counted_value) FILTER (WHERE l.counted), 0)::float8 as counted_value,
			COALESCE(SUM(l.variance_value) FILTER (WHERE l.counted), 0)::float8 as variance_value,
			COALESCE(SUM(l.variance_qty) FILTER (WHERE l.counted), 0)::float8 / 10000.0 as variance_qty
		FROM doc_periods p
		JOIN doc_stocktakes d ON d.period_id = p.id AND d.deletion_mark = false
		JOIN doc_stocktake_lines l ON l.document_id = d.id
		WHERE p.venue_id = $1 AND p.status = 'closed'
	`

	if filter.ItemID != nil {
		query += fmt.Sprintf(" AND l.item_id = $%d", argIndex)
		args = append(args, *filter.ItemID)
		argIndex++
	}

	query += fmt.Sprintf(`
		GROUP BY p.id, p.name, p.end_date
		ORDER BY p.end_date DESC
		LIMIT $%d
	`, argIndex)
	args = append(args, filter.Periods)

	var points []reports.VarianceTrendPoint
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &points, query, args...); err != nil {
		return nil, fmt.Errorf("variance trend: %w", err)
	}

	// Query returns newest first; the report charts oldest first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return &reports.VarianceTrend{
		VenueID:    filter.VenueID,
		ItemID:     filter.ItemID,
		Points:     points,
		TotalItems: len(points),
	}, nil
}

// GetStocktakeJournal retrieves count sheets for journal view with venue and
// period names resolved.
func (r *ReportRepo) GetStocktakeJournal(ctx context.Context, filter reports.StocktakeJournalFilter) (*reports.StocktakeJournal, error) {
	where, args := r.journalWhere(filter, true)

	countQuery := "SELECT COUNT(*) FROM doc_stocktakes d" + where
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	var totalCount int
	if err := querier.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("stocktake journal count: %w", err)
	}

	query := `
		SELECT
			d.id, d.number, d.date, d.approved,
			d.venue_id, v.name as venue_name,
			d.period_id, p.name as period_name,
			(SELECT COUNT(*) FROM doc_stocktake_lines l WHERE l.document_id = d.id) as total_lines,
			d.counted_lines,
			d.total_counted_value::float8 as total_counted_value,
			d.total_variance_value::float8 as total_variance_value,
			d.deletion_mark, d.created_at, d.updated_at
		FROM doc_stocktakes d
		JOIN cat_venues v ON d.venue_id = v.id
		JOIN doc_periods p ON d.period_id = p.id
	` + where

	query += " ORDER BY " + journalSortColumn(filter.SortBy) + " " + sortDirection(filter.SortOrder) + ", d.number"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var items []reports.StocktakeJournalItem
	if err := pgxscan.Select(ctx, querier, &items, query, args...); err != nil {
		return nil, fmt.Errorf("stocktake journal: %w", err)
	}

	return &reports.StocktakeJournal{
		Items:      items,
		TotalCount: totalCount,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// GetVenueSummary returns counts and variance totals by venue for the journal
// header. Status and number filters are ignored so the summary covers the
// whole window.
func (r *ReportRepo) GetVenueSummary(ctx context.Context, filter reports.StocktakeJournalFilter) ([]reports.VenueSummary, error) {
	filter.Approved = nil
	filter.NumberContains = ""
	where, args := r.journalWhere(filter, true)

	query := `
		SELECT
			d.venue_id,
			v.name as venue_name,
			COUNT(*) as count,
			COUNT(*) FILTER (WHERE d.approved) as approved_count,
			COALESCE(SUM(d.total_variance_value), 0)::float8 as total_variance_value
		FROM doc_stocktakes d
		JOIN cat_venues v ON d.venue_id = v.id
	` + where + `
		GROUP BY d.venue_id, v.name
		ORDER BY v.name
	`

	var result []reports.VenueSummary
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &result, query, args...); err != nil {
		return nil, fmt.Errorf("venue summary: %w", err)
	}

	return result, nil
}

// journalWhere builds the shared WHERE clause for journal queries.
func (r *ReportRepo) journalWhere(filter reports.StocktakeJournalFilter, excludeDeleted bool) (string, []any) {
	conds := []string{}
	var args []any
	argIndex := 1

	if excludeDeleted {
		conds = append(conds, "d.deletion_mark = false")
	}
	if filter.FromDate != nil {
		conds = append(conds, fmt.Sprintf("d.date >= $%d", argIndex))
		args = append(args, *filter.FromDate)
		argIndex++
	}
	if filter.ToDate != nil {
		conds = append(conds, fmt.Sprintf("d.date < $%d", argIndex))
		args = append(args, *filter.ToDate)
		argIndex++
	}
	if len(filter.VenueIDs) > 0 {
		placeholders := make([]string, len(filter.VenueIDs))
		for i, vID := range filter.VenueIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, vID)
			argIndex++
		}
		conds = append(conds, fmt.Sprintf("d.venue_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.PeriodIDs) > 0 {
		placeholders := make([]string, len(filter.PeriodIDs))
		for i, pID := range filter.PeriodIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, pID)
			argIndex++
		}
		conds = append(conds, fmt.Sprintf("d.period_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Approved != nil {
		conds = append(conds, fmt.Sprintf("d.approved = $%d", argIndex))
		args = append(args, *filter.Approved)
		argIndex++
	}
	if filter.NumberContains != "" {
		conds = append(conds, fmt.Sprintf("d.number ILIKE $%d", argIndex))
		args = append(args, "%"+filter.NumberContains+"%")
		argIndex++
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// journalSortColumn maps the public sort key to a column. Unknown keys fall
// back to date so the clause never interpolates caller input.
func journalSortColumn(sortBy string) string {
	switch sortBy {
	case "number":
		return "d.number"
	case "variance":
		return "d.total_variance_value"
	default:
		return "d.date"
	}
}

func sortDirection(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}

// Ensure interface compliance
var _ reports.Repository = (*ReportRepo)(nil)
