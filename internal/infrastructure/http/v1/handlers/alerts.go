package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain"
	"bartally/internal/domain/alerts"
	"bartally/internal/infrastructure/http/v1/dto"
)

// AlertsHandler handles HTTP requests for variance alert rules.
type AlertsHandler struct {
	*BaseHandler
	service *alerts.Service
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(base *BaseHandler, service *alerts.Service) *AlertsHandler {
	return &AlertsHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *AlertsHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := domain.DefaultListFilter()
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "name ASC")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.AlertRuleResponse, len(result.Items))
	for i, rule := range result.Items {
		items[i] = dto.FromAlertRule(rule)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

func (h *AlertsHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	ruleID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	rule, err := h.service.GetByID(ctx, ruleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromAlertRule(rule))
}

func (h *AlertsHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateAlertRuleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rule := req.ToEntity()

	if userID := h.GetUserID(c); userID != "" {
		rule.CreatedBy = userID
		rule.UpdatedBy = userID
	}

	if err := h.service.Create(ctx, rule); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromAlertRule(rule)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

func (h *AlertsHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	ruleID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateAlertRuleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rule, err := h.service.GetByID(ctx, ruleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(rule)

	if userID := h.GetUserID(c); userID != "" {
		rule.UpdatedBy = userID
	}

	if err := h.service.Update(ctx, rule); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromAlertRule(rule)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

func (h *AlertsHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	ruleID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(ctx, ruleID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CheckExpression handles POST /alerts/rules/check: compiles an expression
// without saving anything, so rule authors get fast feedback.
func (h *AlertsHandler) CheckExpression(c *gin.Context) {
	var req dto.CheckExpressionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.CheckExpression(req.Expression); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "expression compiles")
}
