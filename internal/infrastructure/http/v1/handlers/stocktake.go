package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/infrastructure/http/v1/dto"
)

// StocktakeHandler handles HTTP requests for counting sheets.
type StocktakeHandler struct {
	*BaseHandler
	service *stocktake.Service
}

// NewStocktakeHandler creates a new stocktake handler.
func NewStocktakeHandler(base *BaseHandler, service *stocktake.Service) *StocktakeHandler {
	return &StocktakeHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *StocktakeHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := stocktake.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "date DESC")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if venueID := c.Query("venueId"); venueID != "" {
		parsed, err := id.Parse(venueID)
		if err == nil {
			filter.VenueID = &parsed
		}
	}

	if periodID := c.Query("periodId"); periodID != "" {
		parsed, err := id.Parse(periodID)
		if err == nil {
			filter.PeriodID = &parsed
		}
	}

	if approved := c.Query("approved"); approved != "" {
		val := approved == "true"
		filter.Approved = &val
	}

	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}

	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.respondList(c, result)
}

func (h *StocktakeHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStocktake(doc))
}

// Open creates the counting sheet for a period, one line per active item,
// openings carried from the venue's previous approved sheet.
func (h *StocktakeHandler) Open(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.OpenStocktakeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	periodID, err := id.Parse(req.PeriodID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid period id format"))
		return
	}
	venueID, err := id.Parse(req.VenueID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid venue id format"))
		return
	}

	doc, err := h.service.OpenSheet(ctx, periodID, venueID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromStocktake(doc)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// RecordCount stores a physical count against one line.
func (h *StocktakeHandler) RecordCount(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}
	lineID, err := id.Parse(c.Param("lineId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid line id format"))
		return
	}

	var req dto.RecordCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.RecordCount(ctx, docID, lineID, req.Full, req.Partial, stocktake.SourceManual, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", result)
	c.JSON(http.StatusOK, result)
}

// SetLineOverride sets or clears a line-level monetary override.
func (h *StocktakeHandler) SetLineOverride(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}
	lineID, err := id.Parse(c.Param("lineId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid line id format"))
		return
	}

	var req dto.LineOverrideRequest
	if !h.BindJSON(c, &req) {
		return
	}

	line, err := h.service.SetLineOverride(ctx, docID, lineID, req.Kind, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", line)
	c.JSON(http.StatusOK, line)
}

// Approve marks the sheet counted and correct.
func (h *StocktakeHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Unapprove reverts an approved sheet to editable.
func (h *StocktakeHandler) Unapprove(c *gin.Context) {
	h.transition(c, h.service.Unapprove)
}

func (h *StocktakeHandler) transition(c *gin.Context, op func(ctx context.Context, docID id.ID) error) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := op(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromStocktake(doc)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// Recalculate refreshes ledger-derived figures and recomputes every line.
func (h *StocktakeHandler) Recalculate(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.Recalculate(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromStocktake(doc)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// GetVariance returns the expected-versus-counted comparison per line.
func (h *StocktakeHandler) GetVariance(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	report, err := h.service.GetVariance(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *StocktakeHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *StocktakeHandler) respondList(c *gin.Context, result domain.ListResult[*stocktake.Stocktake]) {
	items := make([]*dto.StocktakeResponse, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromStocktake(doc)
	}

	c.JSON(http.StatusOK, dto.StocktakeListResponse{
		Items:      items,
		TotalCount: int(result.TotalCount),
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}
