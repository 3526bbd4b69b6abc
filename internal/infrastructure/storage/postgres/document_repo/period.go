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
	"bartally/internal/domain/period"
	"bartally/internal/infrastructure/storage/postgres"
)

const periodsTable = "doc_periods"

// PeriodRepo implements period.Repository.
//
// Periods are not numbered documents (no number/date pair), so this repo
// stands alone instead of embedding BaseDocumentRepo.
type PeriodRepo struct {
	selectCols []string
}

// NewPeriodRepo creates a new period repository.
func NewPeriodRepo() *PeriodRepo {
	return &PeriodRepo{
		selectCols: postgres.ExtractDBColumns[period.Period](),
	}
}

func (r *PeriodRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

func (r *PeriodRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *PeriodRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(r.selectCols...).
		From(periodsTable)
}

// Create inserts a new period.
func (r *PeriodRepo) Create(ctx context.Context, p *period.Period) error {
	data := postgres.StructToMap(p)

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder().
		Insert(periodsTable).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", periodsTable, err)
	}

	return nil
}

// Update modifies an existing period with optimistic locking.
func (r *PeriodRepo) Update(ctx context.Context, p *period.Period) error {
	data := postgres.StructToMap(p)

	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("period has no 'id' field")
	}

	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("period has no 'version' field or it is not an int")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "created_at" || col == "created_by" {
			continue
		}
		if col == "version" || col == "updated_at" {
			continue // managed by repo
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.builder().
		Update(periodsTable).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", periodsTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(periodsTable, entityID)
	}

	return nil
}

// GetByID retrieves a period by ID.
func (r *PeriodRepo) GetByID(ctx context.Context, periodID id.ID) (*period.Period, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": periodID})

	return r.getOne(ctx, q, periodID.String())
}

// GetForUpdate locks the period row. Lifecycle transitions and override
// writes serialize on this lock.
func (r *PeriodRepo) GetForUpdate(ctx context.Context, periodID id.ID) (*period.Period, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": periodID}).
		Suffix("FOR UPDATE")

	return r.getOne(ctx, q, periodID.String())
}

// GetForShare takes a shared lock on the period row. Count mutations hold it
// for the rest of their transaction so a close cannot slide under them.
func (r *PeriodRepo) GetForShare(ctx context.Context, periodID id.ID) (*period.Period, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": periodID}).
		Suffix("FOR SHARE")

	return r.getOne(ctx, q, periodID.String())
}

// FindActiveAt resolves the period window covering a business timestamp for
// a venue. EndDate is inclusive at date granularity, matching
// period.Contains.
func (r *PeriodRepo) FindActiveAt(ctx context.Context, venueID id.ID, at time.Time) (*period.Period, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"venue_id": venueID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.LtOrEq{"start_date": at}).
		Where(squirrel.Expr("? < end_date + INTERVAL '1 day'", at)).
		OrderBy("start_date DESC").
		Limit(1)

	return r.getOne(ctx, q, at.Format(time.RFC3339))
}

// HasOverlapping reports whether another live period of the venue overlaps
// the [start, end] window.
func (r *PeriodRepo) HasOverlapping(ctx context.Context, venueID id.ID, start, end time.Time, excludeID id.ID) (bool, error) {
	q := r.builder().
		Select("1").
		From(periodsTable).
		Where(squirrel.Eq{"venue_id": venueID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.LtOrEq{"start_date": end}).
		Where(squirrel.GtOrEq{"end_date": start}).
		Limit(1)

	if !id.IsNil(excludeID) {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}

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
		return false, fmt.Errorf("has overlapping: %w", err)
	}

	return true, nil
}

// List retrieves periods with filtering and pagination.
func (r *PeriodRepo) List(ctx context.Context, filter period.ListFilter) (domain.ListResult[*period.Period], error) {
	result := domain.ListResult[*period.Period]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.VenueID != nil {
		q = q.Where(squirrel.Eq{"venue_id": *filter.VenueID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"end_date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"start_date": *filter.DateTo})
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

	q = q.OrderBy("start_date DESC")

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

func (r *PeriodRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*period.Period, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	p := &period.Period{}
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(periodsTable, key)
		}
		return nil, fmt.Errorf("get period: %w", err)
	}

	return p, nil
}

var _ period.Repository = (*PeriodRepo)(nil)
