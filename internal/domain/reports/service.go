package reports

import (
	"context"
	"fmt"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/core/security"
)

// Service provides report generation operations.
//
// The category breakdown and variance trend are premium analytics behind the
// advanced_reports flag; the journal is part of the base product.
type Service struct {
	repo  Repository
	flags security.FeatureFlagProvider
}

// NewService creates a new reports service.
func NewService(repo Repository, flags security.FeatureFlagProvider) *Service {
	return &Service{repo: repo, flags: flags}
}

// GetCategoryBreakdown generates the per-category variance breakdown of a period.
func (s *Service) GetCategoryBreakdown(ctx context.Context, filter CategoryBreakdownFilter) (*CategoryBreakdown, error) {
	if err := s.requireAdvancedReports(ctx); err != nil {
		return nil, err
	}
	if id.IsNil(filter.PeriodID) {
		return nil, apperror.NewValidation("periodId is required")
	}

	report, err := s.repo.GetCategoryBreakdown(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get category breakdown: %w", err)
	}

	return report, nil
}

// GetVarianceTrend generates the variance history across recent closed periods.
func (s *Service) GetVarianceTrend(ctx context.Context, filter VarianceTrendFilter) (*VarianceTrend, error) {
	if err := s.requireAdvancedReports(ctx); err != nil {
		return nil, err
	}
	if id.IsNil(filter.VenueID) {
		return nil, apperror.NewValidation("venueId is required")
	}

	// Default window
	if filter.Periods <= 0 {
		filter.Periods = 6
	}
	if filter.Periods > 24 {
		filter.Periods = 24
	}

	report, err := s.repo.GetVarianceTrend(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get variance trend: %w", err)
	}

	return report, nil
}

// GetStocktakeJournal returns the stocktake journal.
func (s *Service) GetStocktakeJournal(ctx context.Context, filter StocktakeJournalFilter) (*StocktakeJournal, error) {
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return nil, apperror.NewValidation("fromDate must be before toDate")
	}

	// Set default pagination
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	// Default sort
	if filter.SortBy == "" {
		filter.SortBy = "date"
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "desc"
	}

	journal, err := s.repo.GetStocktakeJournal(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get stocktake journal: %w", err)
	}

	// Get summary on the first page only
	if filter.Offset == 0 {
		summary, err := s.repo.GetVenueSummary(ctx, filter)
		if err == nil {
			journal.Summary = summary
		}
	}

	return journal, nil
}

func (s *Service) requireAdvancedReports(ctx context.Context) error {
	if s.flags != nil && !s.flags.IsEnabled(ctx, security.FlagAdvancedReports) {
		return apperror.NewForbidden("advanced reports are not enabled for this tenant")
	}
	return nil
}
