package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/infrastructure/storage/postgres"
)

const (
	stocktakesTable     = "doc_stocktakes"
	stocktakeLinesTable = "doc_stocktake_lines"
)

// stocktakeLineCols is the full line column set, shared between GetLines
// and SaveLines so the two can never drift apart.
var stocktakeLineCols = []string{
	"line_id", "line_no", "item_id", "item_name", "category",
	"scheme", "units_per_container", "container_ml", "serving_ml",
	"unit_cost",
	"opening_full", "opening_partial", "opening_qty",
	"counted_full", "counted_partial", "counted",
	"counted_at", "counted_by", "count_source",
	"purchases_override", "waste_override", "sales_override",
	"purchased_qty", "wasted_qty", "sold_qty",
	"counted_qty", "expected_qty", "variance_qty",
	"counted_value", "variance_value",
}

// StocktakeRepo implements stocktake.Repository.
type StocktakeRepo struct {
	*BaseDocumentRepo[*stocktake.Stocktake]
}

// NewStocktakeRepo creates a new stocktake repository.
func NewStocktakeRepo() *StocktakeRepo {
	return &StocktakeRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*stocktake.Stocktake](
			stocktakesTable,
			postgres.ExtractDBColumns[stocktake.Stocktake](),
			func() *stocktake.Stocktake { return &stocktake.Stocktake{} },
		),
	}
}

// GetByPeriod loads the period's sheet. Soft-deleted sheets are invisible,
// so a period whose sheet was discarded can open a fresh one.
func (r *StocktakeRepo) GetByPeriod(ctx context.Context, periodID id.ID) (*stocktake.Stocktake, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"period_id": periodID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.getOne(ctx, q, periodID.String())
}

// GetByPeriodForUpdate loads the period's sheet with a row lock.
func (r *StocktakeRepo) GetByPeriodForUpdate(ctx context.Context, periodID id.ID) (*stocktake.Stocktake, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"period_id": periodID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Suffix("FOR UPDATE")

	return r.getOne(ctx, q, periodID.String())
}

// ExistsForPeriod reports whether the period already has a live sheet.
func (r *StocktakeRepo) ExistsForPeriod(ctx context.Context, periodID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(stocktakesTable).
		Where(squirrel.Eq{"period_id": periodID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	var one int
	err = querier.QueryRow(ctx, sql, args...).Scan(&one)
	if pgxscan.NotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists for period: %w", err)
	}

	return true, nil
}

// GetPreviousApproved returns the venue's most recent approved sheet dated
// before the given time. Seeds opening counts for a new sheet.
func (r *StocktakeRepo) GetPreviousApproved(ctx context.Context, venueID id.ID, before time.Time) (*stocktake.Stocktake, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"venue_id": venueID}).
		Where(squirrel.Eq{"approved": true}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Lt{"date": before}).
		OrderBy("date DESC").
		Limit(1)

	return r.getOne(ctx, q, venueID.String())
}

func (r *StocktakeRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*stocktake.Stocktake, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	doc := &stocktake.Stocktake{}
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(stocktakesTable, key)
		}
		return nil, fmt.Errorf("get stocktake: %w", err)
	}

	return doc, nil
}

func (r *StocktakeRepo) GetLines(ctx context.Context, docID id.ID) ([]stocktake.Line, error) {
	q := r.Builder().
		Select(stocktakeLineCols...).
		From(stocktakeLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []stocktake.Line
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

func (r *StocktakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []stocktake.Line) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + stocktakeLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	cols := append([]string{"document_id"}, stocktakeLineCols...)
	q := r.Builder().
		Insert(stocktakeLinesTable).
		Columns(cols...)

	for _, l := range lines {
		q = q.Values(
			docID,
			l.LineID, l.LineNo, l.ItemID, l.ItemName, l.Category,
			l.Scheme, l.UnitsPerContainer, l.ContainerML, l.ServingML,
			l.UnitCost,
			l.OpeningFull, l.OpeningPartial, l.OpeningQty,
			l.CountedFull, l.CountedPartial, l.Counted,
			l.CountedAt, l.CountedBy, l.CountSource,
			l.PurchasesOverride, l.WasteOverride, l.SalesOverride,
			l.PurchasedQty, l.WastedQty, l.SoldQty,
			l.CountedQty, l.ExpectedQty, l.VarianceQty,
			l.CountedValue, l.VarianceValue,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

func (r *StocktakeRepo) List(ctx context.Context, filter stocktake.ListFilter) (domain.ListResult[*stocktake.Stocktake], error) {
	result := domain.ListResult[*stocktake.Stocktake]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.VenueID != nil {
		q = q.Where(squirrel.Eq{"venue_id": *filter.VenueID})
	}

	if filter.PeriodID != nil {
		q = q.Where(squirrel.Eq{"period_id": *filter.PeriodID})
	}

	if filter.Approved != nil {
		q = q.Where(squirrel.Eq{"approved": *filter.Approved})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

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
		return result, fmt.Errorf("select: %w", err)
	}

	return result, nil
}

var _ stocktake.Repository = (*StocktakeRepo)(nil)
