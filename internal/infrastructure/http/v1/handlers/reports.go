package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain/reports"
	"bartally/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetStocktakeJournal handles GET /reports/stocktake-journal
func (h *ReportsHandler) GetStocktakeJournal(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StocktakeJournalRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	filter := reports.StocktakeJournalFilter{
		Approved:       req.Approved,
		NumberContains: req.NumberContains,
		SortBy:         req.SortBy,
		SortOrder:      req.SortOrder,
		Limit:          req.Limit,
		Offset:         req.Offset,
	}

	if req.FromDate != nil {
		if t, err := time.Parse(time.RFC3339, *req.FromDate); err == nil {
			filter.FromDate = &t
		}
	}
	if req.ToDate != nil {
		if t, err := time.Parse(time.RFC3339, *req.ToDate); err == nil {
			filter.ToDate = &t
		}
	}

	for _, vStr := range req.VenueIDs {
		if vID, err := id.Parse(vStr); err == nil {
			filter.VenueIDs = append(filter.VenueIDs, vID)
		}
	}

	for _, pStr := range req.PeriodIDs {
		if pID, err := id.Parse(pStr); err == nil {
			filter.PeriodIDs = append(filter.PeriodIDs, pID)
		}
	}

	journal, err := h.service.GetStocktakeJournal(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStocktakeJournal(journal))
}

// GetCategoryBreakdown handles GET /reports/category-breakdown
func (h *ReportsHandler) GetCategoryBreakdown(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CategoryBreakdownRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	periodID, err := id.Parse(req.PeriodID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid periodId format"))
		return
	}

	report, err := h.service.GetCategoryBreakdown(ctx, reports.CategoryBreakdownFilter{
		PeriodID:         periodID,
		IncludeUncounted: req.IncludeUncounted,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCategoryBreakdown(report))
}

// GetVarianceTrend handles GET /reports/variance-trend
func (h *ReportsHandler) GetVarianceTrend(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.VarianceTrendRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	venueID, err := id.Parse(req.VenueID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid venueId format"))
		return
	}

	filter := reports.VarianceTrendFilter{
		VenueID: venueID,
		Periods: req.Periods,
	}
	if req.ItemID != nil && *req.ItemID != "" {
		if itemID, err := id.Parse(*req.ItemID); err == nil {
			filter.ItemID = &itemID
		}
	}

	report, err := h.service.GetVarianceTrend(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromVarianceTrend(report))
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stocktake-journal", h.GetStocktakeJournal)
	rg.GET("/category-breakdown", h.GetCategoryBreakdown)
	rg.GET("/variance-trend", h.GetVarianceTrend)
}
