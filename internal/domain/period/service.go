package period

import (
	"context"
	"fmt"
	"time"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/core/security"
	"bartally/internal/core/tenant"
	"bartally/internal/core/tx"
	"bartally/internal/core/types"
	"bartally/internal/domain"
	"bartally/internal/domain/alerts"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/domain/registers/ledger"
	"bartally/pkg/logger"
)

// Auditor appends period lifecycle actions to the audit log, inside the
// caller's transaction.
type Auditor interface {
	LogAction(ctx context.Context, entityType string, entityID id.ID, action string, changes any) error
}

// EventPublisher emits integration events, inside the caller's transaction.
type EventPublisher interface {
	PublishEvent(ctx context.Context, aggregateType string, aggregateID id.ID, eventType string, payload any) error
}

const (
	auditEntityPeriod = "period"

	EventPeriodClosed   = "period.closed"
	EventPeriodReopened = "period.reopened"
)

// ServiceConfig wires the period service. Auditor, Events, Alerter and Flags
// are optional; a nil value disables that concern.
type ServiceConfig struct {
	Repo       Repository
	Stocktakes *stocktake.Service
	Ledger     *ledger.Service
	Auditor    Auditor
	Events     EventPublisher
	Alerter    *alerts.Service
	Flags      security.FeatureFlagProvider
	TxManager  tx.Manager // Optional for Database-per-Tenant
}

// Service provides business operations for stock periods: the close/reopen
// lifecycle and the reconciliation summary.
type Service struct {
	repo       Repository
	stocktakes *stocktake.Service
	ledger     *ledger.Service
	aggregator *Aggregator
	auditor    Auditor
	events     EventPublisher
	alerter    *alerts.Service
	flags      security.FeatureFlagProvider
	txManager  tx.Manager
}

// NewService creates a new period service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:       cfg.Repo,
		stocktakes: cfg.Stocktakes,
		ledger:     cfg.Ledger,
		aggregator: NewAggregator(),
		auditor:    cfg.Auditor,
		events:     cfg.Events,
		alerter:    cfg.Alerter,
		flags:      cfg.Flags,
		txManager:  cfg.TxManager,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Create stores a new draft period after an overlap check.
func (s *Service) Create(ctx context.Context, p *Period) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		overlap, err := s.repo.HasOverlapping(ctx, p.VenueID, p.StartDate, p.EndDate, p.ID)
		if err != nil {
			return err
		}
		if overlap {
			return apperror.NewConflict("period overlaps an existing one").
				WithDetail("venue_id", p.VenueID.String()).
				WithDetail("start_date", p.StartDate).
				WithDetail("end_date", p.EndDate)
		}
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "period created", "id", p.ID, "name", p.Name, "venue_id", p.VenueID)
	return nil
}

// GetByID retrieves a period.
func (s *Service) GetByID(ctx context.Context, periodID id.ID) (*Period, error) {
	return s.repo.GetByID(ctx, periodID)
}

// List retrieves periods with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Period], error) {
	return s.repo.List(ctx, filter)
}

// Update stores changes to a draft period's window or name.
func (s *Service) Update(ctx context.Context, p *Period) error {
	if err := p.CanMutate(); err != nil {
		return err
	}
	if err := p.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		overlap, err := s.repo.HasOverlapping(ctx, p.VenueID, p.StartDate, p.EndDate, p.ID)
		if err != nil {
			return err
		}
		if overlap {
			return apperror.NewConflict("period overlaps an existing one").
				WithDetail("venue_id", p.VenueID.String())
		}
		p.Touch()
		return s.repo.Update(ctx, p)
	})
}

// SetOverride sets or clears a period-level manual total.
func (s *Service) SetOverride(ctx context.Context, periodID id.ID, kind OverrideKind, amount *types.MinorUnits) (*Period, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var p *Period
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err = s.repo.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.CanMutate(); err != nil {
			return err
		}
		if err := p.SetOverride(kind, amount); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		return s.audit(ctx, p.ID, "override_set", map[string]any{
			"kind":    string(kind),
			"amount":  amount,
			"cleared": amount == nil,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period override set",
		"period_id", periodID, "kind", string(kind), "cleared", amount == nil)
	return p, nil
}

// CloseResult reports what a period close computed and froze.
type CloseResult struct {
	Period             *Period           `json:"period"`
	Summary            Summary           `json:"summary"`
	TotalCountedValue  types.Money       `json:"totalCountedValue"`
	TotalVarianceValue types.Money       `json:"totalVarianceValue"`
	Alerts             []alerts.Triggered `json:"alerts,omitempty"`
}

// Close transitions a period from draft to closed.
//
// The close refreshes ledger-derived figures one last time, resolves COGS and
// revenue through their cascades, freezes the result on the stocktake and
// locks the period, all in one transaction. The exclusive period lock
// serializes concurrent transitions: the loser re-reads a closed period and
// fails with ConflictingTransition, without touching the frozen figures.
func (s *Service) Close(ctx context.Context, periodID id.ID, actor string) (*CloseResult, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var result *CloseResult
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if p.IsClosed() {
			return apperror.NewConflictingTransition(p.Label())
		}

		st, err := s.stocktakes.LockForPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if n := st.UncountedLines(); n > 0 {
			return apperror.NewIncompleteCount(p.Label(), n)
		}

		// Late ledger deliveries since the last recalculation still count
		if err := s.stocktakes.RefreshFlows(ctx, st); err != nil {
			return err
		}

		totals, err := s.ledger.PeriodTotals(ctx, periodID)
		if err != nil {
			return fmt.Errorf("period totals: %w", err)
		}

		summary := s.aggregator.Summarize(Inputs{
			PurchasesOverride:  p.PurchasesOverride,
			SalesOverride:      p.SalesOverride,
			LineCostOverrides:  st.LineCostOverrideSum(),
			LineSalesOverrides: st.LineSalesOverrideSum(),
			Ledger:             totals,
		})

		st.Freeze(stocktake.FrozenTotals{
			COGS:           summary.COGS,
			Revenue:        summary.Revenue,
			GrossProfit:    summary.GrossProfit,
			GrossProfitPct: summary.GrossProfitPct,
			PourCostPct:    summary.PourCostPct,
			CogsSource:     summary.CogsSource,
			RevenueSource:  summary.RevenueSource,
		})
		if err := s.stocktakes.Save(ctx, st); err != nil {
			return err
		}

		if err := p.MarkClosed(actor); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}

		triggered, err := s.evaluateAlerts(ctx, st)
		if err != nil {
			return err
		}

		if err := s.audit(ctx, p.ID, "close", map[string]any{
			"closed_by":       actor,
			"close_cycle":     p.CloseCycle,
			"cogs":            summary.COGS,
			"revenue":         summary.Revenue,
			"gross_profit":    summary.GrossProfit,
			"cogs_source":     summary.CogsSource,
			"revenue_source":  summary.RevenueSource,
			"variance_value":  st.TotalVarianceValue,
			"alerts_fired":    len(triggered),
		}); err != nil {
			return err
		}
		if err := s.publish(ctx, p.ID, EventPeriodClosed, map[string]any{
			"period_id":      p.ID,
			"venue_id":       p.VenueID,
			"closed_by":      actor,
			"closed_at":      p.ClosedAt,
			"cogs":           summary.COGS,
			"revenue":        summary.Revenue,
			"gross_profit":   summary.GrossProfit,
			"variance_value": st.TotalVarianceValue,
		}); err != nil {
			return err
		}

		result = &CloseResult{
			Period:             p,
			Summary:            summary,
			TotalCountedValue:  st.TotalCountedValue,
			TotalVarianceValue: st.TotalVarianceValue,
			Alerts:             triggered,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period closed",
		"period_id", periodID,
		"closed_by", actor,
		"cogs_source", result.Summary.CogsSource,
		"revenue_source", result.Summary.RevenueSource,
		"alerts", len(result.Alerts))
	return result, nil
}

// Reopen transitions a closed period back to draft. The frozen snapshot is
// cleared and the sheet unlocked; the prior close's audit fields stay on the
// period record.
func (s *Service) Reopen(ctx context.Context, periodID id.ID, actor string) (*Period, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var p *Period
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err = s.repo.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.MarkReopened(actor); err != nil {
			return err
		}

		st, err := s.stocktakes.LockForPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		st.Unfreeze()
		if err := s.stocktakes.Save(ctx, st); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}

		if err := s.audit(ctx, p.ID, "reopen", map[string]any{
			"reopened_by":          actor,
			"previously_closed_at": p.ClosedAt,
			"previously_closed_by": p.ClosedBy,
		}); err != nil {
			return err
		}
		return s.publish(ctx, p.ID, EventPeriodReopened, map[string]any{
			"period_id":   p.ID,
			"venue_id":    p.VenueID,
			"reopened_by": actor,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period reopened", "period_id", periodID, "reopened_by", actor)
	return p, nil
}

// PeriodSummary is the reconciliation view of one period.
type PeriodSummary struct {
	PeriodID  id.ID     `json:"periodId"`
	VenueID   id.ID     `json:"venueId"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	// Frozen is true when the figures come from the close snapshot rather
	// than a live aggregation.
	Frozen bool `json:"frozen"`

	Summary

	TotalCountedValue  *types.Money `json:"totalCountedValue,omitempty"`
	TotalVarianceValue *types.Money `json:"totalVarianceValue,omitempty"`
	CountedLines       int          `json:"countedLines"`
	TotalLines         int          `json:"totalLines"`

	ClosedAt *time.Time `json:"closedAt,omitempty"`
	ClosedBy *string    `json:"closedBy,omitempty"`
}

// GetSummary returns the period's reconciliation figures: the frozen close
// snapshot for closed periods, a live cascade resolution for draft ones.
func (s *Service) GetSummary(ctx context.Context, periodID id.ID) (*PeriodSummary, error) {
	p, err := s.repo.GetByID(ctx, periodID)
	if err != nil {
		return nil, err
	}

	out := &PeriodSummary{
		PeriodID:  p.ID,
		VenueID:   p.VenueID,
		Name:      p.Name,
		Status:    p.Status,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		ClosedAt:  p.ClosedAt,
		ClosedBy:  p.ClosedBy,
	}

	st, err := s.stocktakes.GetByPeriod(ctx, periodID)
	switch {
	case err == nil:
		out.TotalCountedValue = &st.TotalCountedValue
		out.TotalVarianceValue = &st.TotalVarianceValue
		out.CountedLines = st.CountedLines
		out.TotalLines = st.TotalLines()
	case apperror.IsCode(err, apperror.CodeNotFound):
		st = nil
	default:
		return nil, err
	}

	if p.IsClosed() && st != nil {
		if frozen, ok := st.Frozen(); ok {
			out.Frozen = true
			out.Summary = Summary{
				COGS:           frozen.COGS,
				Revenue:        frozen.Revenue,
				GrossProfit:    frozen.GrossProfit,
				GrossProfitPct: frozen.GrossProfitPct,
				PourCostPct:    frozen.PourCostPct,
				CogsSource:     frozen.CogsSource,
				RevenueSource:  frozen.RevenueSource,
			}
			return out, nil
		}
	}

	totals, err := s.ledger.PeriodTotals(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("period totals: %w", err)
	}

	in := Inputs{
		PurchasesOverride: p.PurchasesOverride,
		SalesOverride:     p.SalesOverride,
		Ledger:            totals,
	}
	if st != nil {
		in.LineCostOverrides = st.LineCostOverrideSum()
		in.LineSalesOverrides = st.LineSalesOverrideSum()
	}
	out.Summary = s.aggregator.Summarize(in)
	return out, nil
}

// evaluateAlerts runs variance alert rules over the closing sheet when the
// feature is enabled.
func (s *Service) evaluateAlerts(ctx context.Context, st *stocktake.Stocktake) ([]alerts.Triggered, error) {
	if s.alerter == nil {
		return nil, nil
	}
	if s.flags != nil && !s.flags.IsEnabled(ctx, security.FlagVarianceAlerts) {
		return nil, nil
	}

	facts := make([]alerts.LineFacts, 0, len(st.Lines))
	for i := range st.Lines {
		l := &st.Lines[i]
		f := alerts.LineFacts{
			ItemID:        l.ItemID,
			ItemName:      l.ItemName,
			Category:      string(l.Category),
			VarianceQty:   l.VarianceQty.Float64(),
			VarianceValue: l.VarianceValue.InexactFloat64(),
			CountedValue:  l.CountedValue.InexactFloat64(),
		}
		if !l.ExpectedQty.IsZero() {
			f.VariancePct = l.VarianceQty.Float64() / l.ExpectedQty.Float64() * 100
		}
		facts = append(facts, f)
	}

	triggered, err := s.alerter.EvaluateLines(ctx, facts)
	if err != nil {
		return nil, err
	}
	for _, a := range triggered {
		logger.Warn(ctx, "variance alert",
			"rule", a.RuleName,
			"severity", string(a.Severity),
			"item", a.ItemName)
	}
	return triggered, nil
}

func (s *Service) audit(ctx context.Context, periodID id.ID, action string, changes any) error {
	if s.auditor == nil {
		return nil
	}
	if err := s.auditor.LogAction(ctx, auditEntityPeriod, periodID, action, changes); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, periodID id.ID, eventType string, payload any) error {
	if s.events == nil {
		return nil
	}
	if err := s.events.PublishEvent(ctx, auditEntityPeriod, periodID, eventType, payload); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
