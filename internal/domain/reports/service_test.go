package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/core/security"
)

type fakeRepo struct {
	lastTrend   VarianceTrendFilter
	lastJournal StocktakeJournalFilter
	summary     []VenueSummary
}

func (f *fakeRepo) GetCategoryBreakdown(ctx context.Context, filter CategoryBreakdownFilter) (*CategoryBreakdown, error) {
	return &CategoryBreakdown{PeriodID: filter.PeriodID}, nil
}

func (f *fakeRepo) GetVarianceTrend(ctx context.Context, filter VarianceTrendFilter) (*VarianceTrend, error) {
	f.lastTrend = filter
	return &VarianceTrend{VenueID: filter.VenueID}, nil
}

func (f *fakeRepo) GetStocktakeJournal(ctx context.Context, filter StocktakeJournalFilter) (*StocktakeJournal, error) {
	f.lastJournal = filter
	return &StocktakeJournal{Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (f *fakeRepo) GetVenueSummary(ctx context.Context, filter StocktakeJournalFilter) ([]VenueSummary, error) {
	return f.summary, nil
}

func enabledFlags() *security.InMemoryFlags {
	flags := security.NewInMemoryFlags()
	flags.SetFlag(security.FlagAdvancedReports, true)
	return flags
}

func TestAdvancedReportsFlag(t *testing.T) {
	flags := security.NewInMemoryFlags()
	flags.SetFlag(security.FlagAdvancedReports, false)
	svc := NewService(&fakeRepo{}, flags)

	_, err := svc.GetCategoryBreakdown(context.Background(), CategoryBreakdownFilter{PeriodID: id.New()})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden), "got %v", err)

	_, err = svc.GetVarianceTrend(context.Background(), VarianceTrendFilter{VenueID: id.New()})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden), "got %v", err)

	// The journal is part of the base product.
	_, err = svc.GetStocktakeJournal(context.Background(), StocktakeJournalFilter{})
	assert.NoError(t, err)
}

func TestGetCategoryBreakdown_RequiresPeriod(t *testing.T) {
	svc := NewService(&fakeRepo{}, enabledFlags())

	_, err := svc.GetCategoryBreakdown(context.Background(), CategoryBreakdownFilter{})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)

	report, err := svc.GetCategoryBreakdown(context.Background(), CategoryBreakdownFilter{PeriodID: id.New()})
	require.NoError(t, err)
	assert.NotNil(t, report)
}

func TestGetVarianceTrend_WindowDefaults(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, enabledFlags())

	_, err := svc.GetVarianceTrend(context.Background(), VarianceTrendFilter{VenueID: id.New()})
	require.NoError(t, err)
	assert.Equal(t, 6, repo.lastTrend.Periods)

	_, err = svc.GetVarianceTrend(context.Background(), VarianceTrendFilter{VenueID: id.New(), Periods: 100})
	require.NoError(t, err)
	assert.Equal(t, 24, repo.lastTrend.Periods)
}

func TestGetStocktakeJournal_Defaults(t *testing.T) {
	repo := &fakeRepo{summary: []VenueSummary{{VenueName: "Main Bar", Count: 3}}}
	svc := NewService(repo, enabledFlags())

	journal, err := svc.GetStocktakeJournal(context.Background(), StocktakeJournalFilter{})
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastJournal.Limit)
	assert.Equal(t, "date", repo.lastJournal.SortBy)
	assert.Equal(t, "desc", repo.lastJournal.SortOrder)
	// Summary rides along on the first page.
	require.Len(t, journal.Summary, 1)
	assert.Equal(t, "Main Bar", journal.Summary[0].VenueName)

	journal, err = svc.GetStocktakeJournal(context.Background(), StocktakeJournalFilter{Limit: 10_000, Offset: 50})
	require.NoError(t, err)
	assert.Equal(t, 500, repo.lastJournal.Limit)
	assert.Empty(t, journal.Summary)
}

func TestGetStocktakeJournal_DateOrder(t *testing.T) {
	svc := NewService(&fakeRepo{}, enabledFlags())

	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.GetStocktakeJournal(context.Background(), StocktakeJournalFilter{FromDate: &from, ToDate: &to})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "got %v", err)
}
