package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/uom"
	"bartally/internal/infrastructure/http/v1/dto"
)

// Type alias keeps handler signatures readable.
type ItemHTTPHandler = CatalogHandler[
	*item.Item,
	dto.CreateItemRequest,
	dto.UpdateItemRequest,
]

// NewItemHandler wires the generic catalog handler for items.
func NewItemHandler(
	base *BaseHandler,
	service *item.Service,
) *ItemHTTPHandler {

	config := CatalogHandlerConfig[
		*item.Item,
		dto.CreateItemRequest,
		dto.UpdateItemRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "item",

		MapCreateDTO: func(req dto.CreateItemRequest) *item.Item {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateItemRequest, existing *item.Item) *item.Item {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(entity *item.Item) any {
			return dto.FromItem(entity)
		},
	}

	return NewCatalogHandler(base, config)
}

// ItemConvertHandler serves conversion previews: a raw count in the item's
// scheme decomposed into canonical servings, container equivalents and value.
type ItemConvertHandler struct {
	*BaseHandler
	service  *item.Service
	registry *uom.Registry
}

// NewItemConvertHandler creates the conversion preview handler.
func NewItemConvertHandler(base *BaseHandler, service *item.Service, registry *uom.Registry) *ItemConvertHandler {
	return &ItemConvertHandler{
		BaseHandler: base,
		service:     service,
		registry:    registry,
	}
}

// Convert handles POST /catalog/items/:id/convert
func (h *ItemConvertHandler) Convert(c *gin.Context) {
	ctx := c.Request.Context()

	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.ConvertItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	it, err := h.service.GetByID(ctx, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if it.IsFolder {
		h.Error(c, apperror.NewValidation("folders have no measure"))
		return
	}

	m, err := it.Measure()
	if err != nil {
		h.Error(c, err)
		return
	}

	raw := uom.NewCount(req.Full, req.Partial)
	normalized, err := h.registry.Normalize(m, raw)
	if err != nil {
		h.Error(c, err)
		return
	}

	conv, err := h.registry.Convert(m, raw)
	if err != nil {
		h.Error(c, err)
		return
	}

	display, err := h.registry.ToDisplay(m, conv.Servings)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConvertItemResponse{
		ItemID:     it.ID.String(),
		Scheme:     m.Scheme,
		Normalized: normalized,
		Servings:   conv.Servings,
		Containers: conv.Containers,
		Value:      conv.Containers.Mul(it.UnitCost),
		Display:    display,
	})
}
