package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bartally/internal/core/apperror"
	"bartally/internal/core/entity"
	"bartally/internal/core/id"
	"bartally/internal/domain/registers/ledger"
	"bartally/internal/infrastructure/http/v1/dto"
)

// LedgerHandler handles HTTP requests for the consumption ledger.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Ingest handles POST /ledger/entries: an atomic collaborator batch.
// When the caller authenticated with a service key, the key's system name
// wins over whatever the body claims.
func (h *LedgerHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LedgerIngestRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sourceSystem := req.SourceSystem
	if v, ok := c.Get("source_system"); ok {
		sourceSystem = v.(string)
	}

	batch, err := req.ToBatch()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid entry reference").WithDetail("error", err.Error()))
		return
	}

	result, err := h.service.RecordEntries(ctx, sourceSystem, batch)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", result)
	c.JSON(http.StatusOK, result)
}

// GetTotals handles GET /ledger/totals: summed amounts for one period.
func (h *LedgerHandler) GetTotals(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LedgerTotalsQuery
	if !h.BindQuery(c, &req) {
		return
	}

	periodID, err := id.Parse(req.PeriodID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid period id format"))
		return
	}

	totals, err := h.service.PeriodTotals(ctx, periodID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LedgerTotalsResponse{
		PeriodID: periodID.String(),
		Totals:   totals,
	})
}

// ListEntries handles GET /ledger/entries: raw records for inspection.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LedgerEntriesQuery
	if !h.BindQuery(c, &req) {
		return
	}

	periodID, err := id.Parse(req.PeriodID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid period id format"))
		return
	}

	filter := ledger.EntryFilter{
		ItemID: parseQueryID(req.ItemID),
		Limit:  req.Limit,
		Offset: req.Offset,
	}

	if req.Kind != nil && *req.Kind != "" {
		kind := entity.LedgerKind(*req.Kind)
		if !kind.Valid() {
			h.Error(c, apperror.NewValidation("unknown ledger kind").WithDetail("kind", *req.Kind))
			return
		}
		filter.Kind = &kind
	}

	if req.FromDate != nil {
		if parsed, err := time.Parse(time.RFC3339, *req.FromDate); err == nil {
			filter.FromDate = &parsed
		}
	}
	if req.ToDate != nil {
		if parsed, err := time.Parse(time.RFC3339, *req.ToDate); err == nil {
			filter.ToDate = &parsed
		}
	}

	entries, err := h.service.ListByPeriod(ctx, periodID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LedgerEntriesResponse{
		Items:  entries,
		Count:  len(entries),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// parseQueryID parses an optional UUID query value; validation happened at
// binding, so failures fall back to nil.
func parseQueryID(s *string) *id.ID {
	if s == nil || *s == "" {
		return nil
	}
	parsed, err := id.Parse(*s)
	if err != nil {
		return nil
	}
	return &parsed
}
