package dto

import (
	"time"

	"bartally/internal/domain/reports"
)

// --- Stocktake Journal ---

// StocktakeJournalRequest represents request for the stocktake journal.
type StocktakeJournalRequest struct {
	FromDate       *string  `form:"fromDate"`
	ToDate         *string  `form:"toDate"`
	VenueIDs       []string `form:"venueId"`
	PeriodIDs      []string `form:"periodId"`
	Approved       *bool    `form:"approved"`
	NumberContains string   `form:"number"`
	SortBy         string   `form:"sortBy"`
	SortOrder      string   `form:"sortOrder"`
	Limit          int      `form:"limit"`
	Offset         int      `form:"offset"`
}

// StocktakeJournalResponse represents the stocktake journal response.
type StocktakeJournalResponse struct {
	Items      []StocktakeJournalItemResponse `json:"items"`
	TotalCount int                            `json:"totalCount"`
	Limit      int                            `json:"limit"`
	Offset     int                            `json:"offset"`
	Summary    []VenueSummaryResponse         `json:"summary,omitempty"`
}

// StocktakeJournalItemResponse represents a count sheet in the journal.
type StocktakeJournalItemResponse struct {
	ID                 string  `json:"id"`
	Number             string  `json:"number"`
	Date               string  `json:"date"`
	Approved           bool    `json:"approved"`
	VenueID            string  `json:"venueId"`
	VenueName          string  `json:"venueName"`
	PeriodID           string  `json:"periodId"`
	PeriodName         string  `json:"periodName"`
	TotalLines         int     `json:"totalLines"`
	CountedLines       int     `json:"countedLines"`
	TotalCountedValue  float64 `json:"totalCountedValue"`
	TotalVarianceValue float64 `json:"totalVarianceValue"`
	DeletionMark       bool    `json:"deletionMark,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

// VenueSummaryResponse represents summary by venue.
type VenueSummaryResponse struct {
	VenueID            string  `json:"venueId"`
	VenueName          string  `json:"venueName"`
	Count              int     `json:"count"`
	ApprovedCount      int     `json:"approvedCount"`
	TotalVarianceValue float64 `json:"totalVarianceValue"`
}

// FromStocktakeJournal converts domain journal to response DTO.
func FromStocktakeJournal(j *reports.StocktakeJournal) *StocktakeJournalResponse {
	resp := &StocktakeJournalResponse{
		Items:      make([]StocktakeJournalItemResponse, len(j.Items)),
		TotalCount: j.TotalCount,
		Limit:      j.Limit,
		Offset:     j.Offset,
	}

	for i, item := range j.Items {
		resp.Items[i] = StocktakeJournalItemResponse{
			ID:                 item.ID.String(),
			Number:             item.Number,
			Date:               item.Date.Format(time.RFC3339),
			Approved:           item.Approved,
			VenueID:            item.VenueID.String(),
			VenueName:          item.VenueName,
			PeriodID:           item.PeriodID.String(),
			PeriodName:         item.PeriodName,
			TotalLines:         item.TotalLines,
			CountedLines:       item.CountedLines,
			TotalCountedValue:  item.TotalCountedValue,
			TotalVarianceValue: item.TotalVarianceValue,
			DeletionMark:       item.DeletionMark,
			CreatedAt:          item.CreatedAt.Format(time.RFC3339),
			UpdatedAt:          item.UpdatedAt.Format(time.RFC3339),
		}
	}

	if j.Summary != nil {
		resp.Summary = make([]VenueSummaryResponse, len(j.Summary))
		for i, s := range j.Summary {
			resp.Summary[i] = VenueSummaryResponse{
				VenueID:            s.VenueID.String(),
				VenueName:          s.VenueName,
				Count:              s.Count,
				ApprovedCount:      s.ApprovedCount,
				TotalVarianceValue: s.TotalVarianceValue,
			}
		}
	}

	return resp
}

// --- Category Breakdown ---

// CategoryBreakdownRequest represents request for the category breakdown report.
type CategoryBreakdownRequest struct {
	PeriodID         string `form:"periodId" binding:"required,uuid"`
	IncludeUncounted bool   `form:"includeUncounted"`
}

// CategoryBreakdownResponse represents the per-category report of a period.
type CategoryBreakdownResponse struct {
	PeriodID           string                          `json:"periodId"`
	Items              []CategoryBreakdownItemResponse `json:"items"`
	TotalItems         int                             `json:"totalItems"`
	TotalCountedValue  float64                         `json:"totalCountedValue"`
	TotalVarianceValue float64                         `json:"totalVarianceValue"`
}

// CategoryBreakdownItemResponse represents one category row.
type CategoryBreakdownItemResponse struct {
	Category      string  `json:"category"`
	LineCount     int     `json:"lineCount"`
	CountedLines  int     `json:"countedLines"`
	CountedValue  float64 `json:"countedValue"`
	VarianceValue float64 `json:"varianceValue"`
}

// FromCategoryBreakdown converts domain report to response DTO.
func FromCategoryBreakdown(r *reports.CategoryBreakdown) *CategoryBreakdownResponse {
	resp := &CategoryBreakdownResponse{
		PeriodID:           r.PeriodID.String(),
		Items:              make([]CategoryBreakdownItemResponse, len(r.Items)),
		TotalItems:         r.TotalItems,
		TotalCountedValue:  r.TotalCountedValue,
		TotalVarianceValue: r.TotalVarianceValue,
	}

	for i, item := range r.Items {
		resp.Items[i] = CategoryBreakdownItemResponse{
			Category:      item.Category,
			LineCount:     item.LineCount,
			CountedLines:  item.CountedLines,
			CountedValue:  item.CountedValue,
			VarianceValue: item.VarianceValue,
		}
	}

	return resp
}

// --- Variance Trend ---

// VarianceTrendRequest represents request for the variance trend report.
type VarianceTrendRequest struct {
	VenueID string  `form:"venueId" binding:"required,uuid"`
	ItemID  *string `form:"itemId" binding:"omitempty,uuid"`
	Periods int     `form:"periods"`
}

// VarianceTrendResponse represents the variance history of a venue or item.
type VarianceTrendResponse struct {
	VenueID    string                       `json:"venueId"`
	ItemID     *string                      `json:"itemId,omitempty"`
	Points     []VarianceTrendPointResponse `json:"points"`
	TotalItems int                          `json:"totalItems"`
}

// VarianceTrendPointResponse represents one closed period on the trend.
type VarianceTrendPointResponse struct {
	PeriodID      string  `json:"periodId"`
	PeriodName    string  `json:"periodName"`
	EndDate       string  `json:"endDate"`
	CountedValue  float64 `json:"countedValue"`
	VarianceValue float64 `json:"varianceValue"`
	VarianceQty   float64 `json:"varianceQty,omitempty"`
}

// FromVarianceTrend converts domain report to response DTO.
func FromVarianceTrend(r *reports.VarianceTrend) *VarianceTrendResponse {
	resp := &VarianceTrendResponse{
		VenueID:    r.VenueID.String(),
		Points:     make([]VarianceTrendPointResponse, len(r.Points)),
		TotalItems: r.TotalItems,
	}

	if r.ItemID != nil {
		s := r.ItemID.String()
		resp.ItemID = &s
	}

	for i, p := range r.Points {
		resp.Points[i] = VarianceTrendPointResponse{
			PeriodID:      p.PeriodID.String(),
			PeriodName:    p.PeriodName,
			EndDate:       p.EndDate.Format(time.RFC3339),
			CountedValue:  p.CountedValue,
			VarianceValue: p.VarianceValue,
			VarianceQty:   p.VarianceQty,
		}
	}

	return resp
}
