// Package register_repo provides PostgreSQL implementations for register repositories.
// In Database-per-Tenant architecture, TxManager is obtained from context.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/domain/registers/ledger"
	"bartally/internal/infrastructure/storage/postgres"
)

const ledgerEntriesTable = "reg_ledger_entries"

var ledgerEntryCols = []string{
	"line_id", "source_system", "source_ref", "occurred_at", "kind", "created_at",
	"period_id", "venue_id", "item_id", "supplier_id",
	"quantity", "amount",
}

// LedgerRepo implements ledger.Repository.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type LedgerRepo struct {
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new consumption ledger repository.
func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// getTxManager retrieves TxManager from context.
func (r *LedgerRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// InsertEntries batch inserts ledger records. Redelivered records (same
// source_system + source_ref) are skipped via ON CONFLICT, so collaborator
// retries stay idempotent. Returns the number actually inserted.
func (r *LedgerRepo) InsertEntries(ctx context.Context, entries []entity.LedgerEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	q := r.builder.Insert(ledgerEntriesTable).Columns(ledgerEntryCols...)

	for _, e := range entries {
		q = q.Values(
			e.LineID, e.SourceSystem, e.SourceRef, e.OccurredAt, e.Kind, e.CreatedAt,
			e.PeriodID, e.VenueID, e.ItemID, e.SupplierID,
			e.Quantity, e.Amount,
		)
	}

	q = q.Suffix("ON CONFLICT (source_system, source_ref) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert ledger entries: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// PeriodTotals sums amounts per kind for one period.
func (r *LedgerRepo) PeriodTotals(ctx context.Context, periodID id.ID) (entity.LedgerTotals, error) {
	var totals entity.LedgerTotals

	sql := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'purchase'), 0)::bigint AS purchases_amount,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'waste'), 0)::bigint    AS waste_amount,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'sale'), 0)::bigint     AS sales_amount,
			COUNT(*)                                                          AS entry_count
		FROM reg_ledger_entries
		WHERE period_id = $1
	`

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &totals, sql, periodID); err != nil {
		return totals, fmt.Errorf("period totals: %w", err)
	}

	return totals, nil
}

// ItemFlows sums quantities per item for one period.
func (r *LedgerRepo) ItemFlows(ctx context.Context, periodID id.ID) ([]entity.ItemFlow, error) {
	sql := `
		SELECT
			item_id,
			COALESCE(SUM(quantity) FILTER (WHERE kind = 'purchase'), 0)::bigint AS purchased_qty,
			COALESCE(SUM(quantity) FILTER (WHERE kind = 'waste'), 0)::bigint    AS wasted_qty,
			COALESCE(SUM(quantity) FILTER (WHERE kind = 'sale'), 0)::bigint     AS sold_qty
		FROM reg_ledger_entries
		WHERE period_id = $1
		GROUP BY item_id
		ORDER BY item_id
	`

	var flows []entity.ItemFlow
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &flows, sql, periodID); err != nil {
		return nil, fmt.Errorf("item flows: %w", err)
	}

	return flows, nil
}

// ListByPeriod retrieves raw ledger records for inspection.
func (r *LedgerRepo) ListByPeriod(ctx context.Context, periodID id.ID, filter ledger.EntryFilter) ([]entity.LedgerEntry, error) {
	q := r.builder.Select(ledgerEntryCols...).
		From(ledgerEntriesTable).
		Where(squirrel.Eq{"period_id": periodID})

	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"occurred_at": *filter.ToDate})
	}

	q = q.OrderBy("occurred_at", "line_id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}

	return entries, nil
}

var _ ledger.Repository = (*LedgerRepo)(nil)
