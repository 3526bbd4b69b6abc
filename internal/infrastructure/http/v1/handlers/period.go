package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain"
	"bartally/internal/domain/period"
	"bartally/internal/infrastructure/http/v1/dto"
	"bartally/internal/infrastructure/storage/postgres"
)

const auditHistoryLimit = 100

// PeriodHandler handles HTTP requests for stock periods.
type PeriodHandler struct {
	*BaseHandler
	service *period.Service
	audit   *postgres.AuditService
}

// NewPeriodHandler creates a new period handler.
func NewPeriodHandler(base *BaseHandler, service *period.Service, audit *postgres.AuditService) *PeriodHandler {
	return &PeriodHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

func (h *PeriodHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := period.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "start_date DESC")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if venueID := c.Query("venueId"); venueID != "" {
		parsed, err := id.Parse(venueID)
		if err == nil {
			filter.VenueID = &parsed
		}
	}

	if status := c.Query("status"); status != "" {
		s := period.Status(status)
		filter.Status = &s
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

	items := make([]*dto.PeriodResponse, len(result.Items))
	for i, p := range result.Items {
		items[i] = dto.FromPeriod(p)
	}

	c.JSON(http.StatusOK, dto.PeriodListResponse{
		Items:      items,
		TotalCount: int(result.TotalCount),
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

func (h *PeriodHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	p, err := h.service.GetByID(ctx, periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromPeriod(p))
}

func (h *PeriodHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreatePeriodRequest
	if !h.BindJSON(c, &req) {
		return
	}

	venueID, err := id.Parse(req.VenueID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid venue id format"))
		return
	}

	p := period.New(venueID, req.Name, req.StartDate, req.EndDate)

	if userID := h.GetUserID(c); userID != "" {
		p.CreatedBy = userID
		p.UpdatedBy = userID
	}

	if err := h.service.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromPeriod(p)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

func (h *PeriodHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdatePeriodRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(ctx, periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	p.Name = req.Name
	p.StartDate = req.StartDate
	p.EndDate = req.EndDate

	if userID := h.GetUserID(c); userID != "" {
		p.UpdatedBy = userID
	}

	if err := h.service.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromPeriod(p)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// SetOverride sets or clears a period-level manual purchases or sales total.
func (h *PeriodHandler) SetOverride(c *gin.Context) {
	ctx := c.Request.Context()

	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.PeriodOverrideRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.SetOverride(ctx, periodID, req.Kind, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromPeriod(p)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// Close freezes the period's reconciliation figures and locks it.
func (h *PeriodHandler) Close(c *gin.Context) {
	ctx := c.Request.Context()

	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	result, err := h.service.Close(ctx, periodID, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", result)
	c.JSON(http.StatusOK, result)
}

// Reopen unlocks a closed period for corrections.
func (h *PeriodHandler) Reopen(c *gin.Context) {
	ctx := c.Request.Context()

	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	p, err := h.service.Reopen(ctx, periodID, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromPeriod(p)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// GetSummary returns the period's reconciliation figures.
func (h *PeriodHandler) GetSummary(c *gin.Context) {
	ctx := c.Request.Context()

	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	summary, err := h.service.GetSummary(ctx, periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetAudit returns the period's lifecycle trail, newest first.
func (h *PeriodHandler) GetAudit(c *gin.Context) {
	ctx := c.Request.Context()

	periodID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	// The period must exist; an empty trail on a real period is a valid answer
	if _, err := h.service.GetByID(ctx, periodID); err != nil {
		h.Error(c, err)
		return
	}

	limit := h.ParseIntQuery(c, "limit", auditHistoryLimit)
	entries, err := h.audit.GetEntityHistory(ctx, "period", periodID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.AuditEntryResponse, len(entries))
	for i := range entries {
		items[i] = dto.FromAuditEntry(&entries[i])
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: int64(len(items)),
		Limit:      limit,
		Offset:     0,
	})
}
