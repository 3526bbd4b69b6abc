package stocktake

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/core/numerator"
	"bartally/internal/core/tenant"
	"bartally/internal/core/tx"
	"bartally/internal/core/types"
	"bartally/internal/domain"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/catalogs/venue"
	"bartally/internal/domain/uom"
	"bartally/pkg/logger"
)

// PeriodGate checks the owning period before a sheet mutation.
// Implementations hold a shared lock on the period row for the rest of the
// transaction, so a concurrent close cannot slip between the check and the
// write.
type PeriodGate interface {
	EnsureOpen(ctx context.Context, periodID id.ID) error
}

// FlowSource supplies per-item ledger movement for a period.
type FlowSource interface {
	ItemFlows(ctx context.Context, periodID id.ID) (map[id.ID]entity.ItemFlow, error)
}

// Service provides business operations for stocktake documents.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	repo      Repository
	registry  *uom.Registry
	items     *item.Service
	venues    *venue.Service
	periods   PeriodGate
	flows     FlowSource
	numerator numerator.Generator
	txManager tx.Manager // Optional. If nil, obtained from context (DB-per-tenant).
	hooks     *domain.HookRegistry[*Stocktake]
}

// NewService creates a new stocktake service.
func NewService(
	repo Repository,
	registry *uom.Registry,
	items *item.Service,
	venues *venue.Service,
	periods PeriodGate,
	flows FlowSource,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		registry:  registry,
		items:     items,
		venues:    venues,
		periods:   periods,
		flows:     flows,
		numerator: numerator,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Stocktake](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Stocktake] {
	return s.hooks
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// OpenSheet creates the period's counting sheet: one line per active item,
// openings seeded from the venue's previous approved sheet.
func (s *Service) OpenSheet(ctx context.Context, periodID, venueID id.ID) (*Stocktake, error) {
	v, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !v.CanCount() {
		return nil, apperror.NewValidation("venue does not accept stocktakes").
			WithDetail("venue", v.Name)
	}

	items, err := s.items.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	doc := New(periodID, venueID)

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("ST"), &numerator.Options{Strategy: NumeratorStrategy}, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	doc.Number = number

	openings, err := s.previousClosings(ctx, venueID, doc.Date)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		opening := openings[it.ID]
		if err := doc.AddLine(s.registry, it, opening); err != nil {
			return nil, fmt.Errorf("add line %s: %w", it.Name, err)
		}
	}

	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.periods.EnsureOpen(ctx, periodID); err != nil {
			return err
		}
		exists, err := s.repo.ExistsForPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.NewConflict("period already has a stocktake").
				WithDetail("period_id", periodID.String())
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stocktake opened",
		"id", doc.ID,
		"number", doc.Number,
		"period_id", periodID,
		"lines", len(doc.Lines))
	return doc, nil
}

// previousClosings maps item ID to the closing count of the venue's most
// recent approved sheet. An empty map means a first count: zero openings.
func (s *Service) previousClosings(ctx context.Context, venueID id.ID, before time.Time) (map[id.ID]uom.Count, error) {
	prev, err := s.repo.GetPreviousApproved(ctx, venueID, before)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeNotFound) {
			return map[id.ID]uom.Count{}, nil
		}
		return nil, fmt.Errorf("previous stocktake: %w", err)
	}

	lines, err := s.repo.GetLines(ctx, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("previous stocktake lines: %w", err)
	}

	openings := make(map[id.ID]uom.Count, len(lines))
	for i := range lines {
		l := &lines[i]
		if !l.Counted {
			continue
		}
		openings[l.ItemID] = uom.NewCount(l.CountedFull, l.CountedPartial)
	}
	return openings, nil
}

// GetByID retrieves a stocktake with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Stocktake, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, doc)
}

// GetByPeriod retrieves the period's stocktake with lines.
func (s *Service) GetByPeriod(ctx context.Context, periodID id.ID) (*Stocktake, error) {
	doc, err := s.repo.GetByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, doc)
}

func (s *Service) withLines(ctx context.Context, doc *Stocktake) (*Stocktake, error) {
	lines, err := s.repo.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// CountResult is the echo returned after a recorded count.
type CountResult struct {
	LineID       id.ID          `json:"lineId"`
	ItemID       id.ID          `json:"itemId"`
	ItemName     string         `json:"itemName"`
	CanonicalQty types.Quantity `json:"canonicalQty"`
	Value        types.Money    `json:"value"`
	Display      uom.Display    `json:"display"`
	Source       CountSource    `json:"source"`
}

// RecordCount stores a physical count against one line and returns the
// derived canonical quantity and valuation.
//
// Lock order is period row (shared), then document row. The period check and
// the line write commit together, so a count can never land in a period that
// closed mid-request.
func (s *Service) RecordCount(ctx context.Context, docID, lineID id.ID, full, partial decimal.Decimal, source CountSource, actor string) (*CountResult, error) {
	peek, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var result *CountResult
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.periods.EnsureOpen(ctx, peek.PeriodID); err != nil {
			return err
		}

		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc, err = s.withLines(ctx, doc); err != nil {
			return err
		}

		line, err := doc.RecordCount(s.registry, lineID, full, partial, source, actor)
		if err != nil {
			return err
		}

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		display, err := s.registry.ToDisplay(line.Measure(), line.CountedQty.Decimal())
		if err != nil {
			return err
		}
		result = &CountResult{
			LineID:       line.LineID,
			ItemID:       line.ItemID,
			ItemName:     line.ItemName,
			CanonicalQty: line.CountedQty,
			Value:        line.CountedValue,
			Display:      display,
			Source:       source,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "count recorded",
		"stocktake_id", docID,
		"line_id", lineID,
		"source", string(source),
		"counted_by", actor)
	return result, nil
}

// SetLineOverride sets or clears a line's manual monetary figure.
func (s *Service) SetLineOverride(ctx context.Context, docID, lineID id.ID, kind OverrideKind, amount *types.MinorUnits) (*Line, error) {
	peek, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var out Line
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.periods.EnsureOpen(ctx, peek.PeriodID); err != nil {
			return err
		}

		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc, err = s.withLines(ctx, doc); err != nil {
			return err
		}

		line, err := doc.SetLineOverride(s.registry, lineID, kind, amount)
		if err != nil {
			return err
		}

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		out = *line
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "line override set",
		"stocktake_id", docID,
		"line_id", lineID,
		"kind", string(kind),
		"cleared", amount == nil)
	return &out, nil
}

// Approve signs off the sheet, locking its lines. Requires every line
// counted.
func (s *Service) Approve(ctx context.Context, docID id.ID) error {
	peek, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.periods.EnsureOpen(ctx, peek.PeriodID); err != nil {
			return err
		}

		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc, err = s.withLines(ctx, doc); err != nil {
			return err
		}
		if doc.Approved {
			return apperror.NewConflict("stocktake already approved").
				WithDetail("id", docID.String())
		}
		if n := doc.UncountedLines(); n > 0 {
			return apperror.NewIncompleteCount(doc.PeriodID.String(), n)
		}
		if err := doc.CanApprove(ctx); err != nil {
			return err
		}

		doc.MarkApproved()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stocktake approved", "id", docID)
	return nil
}

// Unapprove unlocks the sheet for further counting. Not available once the
// owning period is closed; reopen the period instead.
func (s *Service) Unapprove(ctx context.Context, docID id.ID) error {
	peek, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.periods.EnsureOpen(ctx, peek.PeriodID); err != nil {
			return err
		}

		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if !doc.Approved {
			return apperror.NewConflict("stocktake is not approved").
				WithDetail("id", docID.String())
		}

		doc.MarkUnapproved()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stocktake unapproved", "id", docID)
	return nil
}

// Recalculate refreshes ledger-derived quantities on every line and
// rederives expected and variance figures.
func (s *Service) Recalculate(ctx context.Context, docID id.ID) (*Stocktake, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var doc *Stocktake
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		// Approval implies a frozen sheet (a period close approves in the
		// same transaction that closes), so this also rejects recalculation
		// of closed-period figures.
		if err := doc.CanModify(); err != nil {
			return err
		}
		if doc, err = s.withLines(ctx, doc); err != nil {
			return err
		}
		if err := s.RefreshFlows(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stocktake recalculated", "id", docID)
	return doc, nil
}

// LockForPeriod loads the period's sheet with lines under a row lock.
// Used by the period close, which must run it inside its own transaction.
func (s *Service) LockForPeriod(ctx context.Context, periodID id.ID) (*Stocktake, error) {
	doc, err := s.repo.GetByPeriodForUpdate(ctx, periodID)
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, doc)
}

// RefreshFlows replaces the sheet's ledger-derived quantities with current
// register figures. The document is mutated, not saved.
func (s *Service) RefreshFlows(ctx context.Context, doc *Stocktake) error {
	flows, err := s.flows.ItemFlows(ctx, doc.PeriodID)
	if err != nil {
		return fmt.Errorf("item flows: %w", err)
	}
	return doc.ApplyFlows(s.registry, flows)
}

// Save persists the document header and lines. Callers are expected to hold
// the document lock and run inside a transaction.
func (s *Service) Save(ctx context.Context, doc *Stocktake) error {
	if err := s.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	return nil
}

// Delete soft-deletes a draft stocktake.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := doc.CanModify(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, docID)
}

// List retrieves stocktakes with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Stocktake], error) {
	return s.repo.List(ctx, filter)
}
