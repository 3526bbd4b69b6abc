package ledger

import (
	"context"
	"fmt"
	"time"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/core/security"
	"bartally/internal/core/tenant"
	"bartally/internal/core/tx"
	"bartally/internal/core/types"
	"bartally/pkg/logger"
)

// PeriodWindows resolves the owning period for a ledger record at ingest.
// Implemented by the period package.
type PeriodWindows interface {
	// ActiveWindow returns the period id covering the venue's business
	// timestamp and whether that period is closed.
	ActiveWindow(ctx context.Context, venueID id.ID, at time.Time) (id.ID, bool, error)
}

// IngestEntry is one record as delivered by a collaborator (POS, purchasing).
type IngestEntry struct {
	Kind       entity.LedgerKind `json:"kind"`
	VenueID    id.ID             `json:"venueId"`
	ItemID     id.ID             `json:"itemId"`
	SupplierID *id.ID            `json:"supplierId,omitempty"`

	// Quantity in canonical servings; negative quantities are corrections
	Quantity types.Quantity `json:"quantity"`

	// Amount in minor currency units (cents)
	Amount types.MinorUnits `json:"amount"`

	OccurredAt time.Time `json:"occurredAt"`

	// SourceRef is the collaborator's own record reference; together with
	// the source system it deduplicates re-delivered batches
	SourceRef string `json:"sourceRef"`
}

// IngestResult reports what a batch ingest did.
type IngestResult struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Service provides business operations for the consumption ledger.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	repo      Repository
	periods   PeriodWindows
	policy    security.BackdatePolicy
	txManager tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates a new ledger service.
func NewService(repo Repository, periods PeriodWindows, policy security.BackdatePolicy) *Service {
	return &Service{
		repo:    repo,
		periods: periods,
		policy:  policy,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// RecordEntries validates and ingests a collaborator batch. The batch is
// atomic: any rejected record rejects the whole batch before anything is
// written. Each record is stamped with the period covering its venue and
// business timestamp; records landing in a closed period are rejected.
func (s *Service) RecordEntries(ctx context.Context, sourceSystem string, batch []IngestEntry) (IngestResult, error) {
	if sourceSystem == "" {
		return IngestResult{}, apperror.NewValidation("source system is required")
	}
	if len(batch) == 0 {
		return IngestResult{}, nil
	}

	entries := make([]entity.LedgerEntry, 0, len(batch))
	for i, in := range batch {
		if err := s.validateEntry(i, in); err != nil {
			return IngestResult{}, err
		}

		if s.policy != nil {
			if err := s.policy.CanRecord(ctx, in.OccurredAt); err != nil {
				return IngestResult{}, err
			}
		}

		periodID, closed, err := s.periods.ActiveWindow(ctx, in.VenueID, in.OccurredAt)
		if err != nil {
			return IngestResult{}, fmt.Errorf("resolve period for entry %d: %w", i, err)
		}
		if closed {
			return IngestResult{}, apperror.NewPeriodLocked(periodID.String()).
				WithDetail("entry", i).
				WithDetail("occurred_at", in.OccurredAt)
		}

		e := entity.NewLedgerEntry(
			sourceSystem, in.SourceRef,
			in.OccurredAt, in.Kind,
			periodID, in.VenueID, in.ItemID,
			in.Quantity, in.Amount,
		)
		e.SupplierID = in.SupplierID
		entries = append(entries, e)
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return IngestResult{}, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var inserted int
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		n, err := s.repo.InsertEntries(ctx, entries)
		if err != nil {
			return fmt.Errorf("insert ledger entries: %w", err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{
		Received: len(batch),
		Inserted: inserted,
		Skipped:  len(batch) - inserted,
	}

	logger.Info(ctx, "ledger batch ingested",
		"source_system", sourceSystem,
		"received", result.Received,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
	)

	return result, nil
}

func (s *Service) validateEntry(i int, in IngestEntry) error {
	if !in.Kind.Valid() {
		return apperror.NewValidation(fmt.Sprintf("entry %d: unknown ledger kind", i)).
			WithDetail("kind", string(in.Kind))
	}
	if id.IsNil(in.VenueID) {
		return apperror.NewValidation(fmt.Sprintf("entry %d: venue is required", i))
	}
	if id.IsNil(in.ItemID) {
		return apperror.NewValidation(fmt.Sprintf("entry %d: item is required", i))
	}
	if in.OccurredAt.IsZero() {
		return apperror.NewValidation(fmt.Sprintf("entry %d: occurred_at is required", i))
	}
	if in.SourceRef == "" {
		return apperror.NewValidation(fmt.Sprintf("entry %d: source_ref is required", i))
	}
	return nil
}

// PeriodTotals sums ledger amounts for one period. This is the automatic
// tier of the reconciliation cascade.
func (s *Service) PeriodTotals(ctx context.Context, periodID id.ID) (entity.LedgerTotals, error) {
	return s.repo.PeriodTotals(ctx, periodID)
}

// ItemFlows returns per-item ledger quantities for one period, keyed by item.
// Feeds expected-quantity derivation on stocktake lines.
func (s *Service) ItemFlows(ctx context.Context, periodID id.ID) (map[id.ID]entity.ItemFlow, error) {
	flows, err := s.repo.ItemFlows(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("item flows: %w", err)
	}

	byItem := make(map[id.ID]entity.ItemFlow, len(flows))
	for _, f := range flows {
		byItem[f.ItemID] = f
	}
	return byItem, nil
}

// ListByPeriod retrieves raw ledger records for inspection.
func (s *Service) ListByPeriod(ctx context.Context, periodID id.ID, filter EntryFilter) ([]entity.LedgerEntry, error) {
	return s.repo.ListByPeriod(ctx, periodID, filter)
}
