package dto

import (
	"github.com/shopspring/decimal"

	"bartally/internal/core/entity"
	"bartally/internal/core/types"
	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/uom"
)

// --- Request DTOs ---

// CreateItemRequest is the request body for creating a stock item.
type CreateItemRequest struct {
	Code              string            `json:"code"`
	Name              string            `json:"name" binding:"required"`
	Category          uom.Category      `json:"category"`
	SchemeOverride    uom.Scheme        `json:"schemeOverride"`
	UnitsPerContainer int64             `json:"unitsPerContainer"`
	ContainerML       decimal.Decimal   `json:"containerMl"`
	ServingML         decimal.Decimal   `json:"servingMl"`
	UnitCost          types.Money       `json:"unitCost"`
	SKU               *string           `json:"sku"`
	Barcode           *string           `json:"barcode"`
	SupplierID        *string           `json:"supplierId" binding:"omitempty,uuid"`
	Aliases           []string          `json:"aliases"`
	IsActive          *bool             `json:"isActive"`
	Description       *string           `json:"description"`
	ParentID          *string           `json:"parentId"`
	IsFolder          bool              `json:"isFolder"`
	Attributes        entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateItemRequest) ToEntity() *item.Item {
	it := item.NewItem(r.Code, r.Name, r.Category)
	it.SchemeOverride = r.SchemeOverride
	it.UnitsPerContainer = r.UnitsPerContainer
	it.ContainerML = r.ContainerML
	it.ServingML = r.ServingML
	it.UnitCost = r.UnitCost
	it.SKU = r.SKU
	it.Barcode = r.Barcode
	it.SupplierID = parseOptionalID(r.SupplierID)
	it.Aliases = r.Aliases
	if r.IsActive != nil {
		it.IsActive = *r.IsActive
	}
	it.Description = r.Description
	it.ParentID = r.ParentID
	it.IsFolder = r.IsFolder
	it.Attributes = r.Attributes
	return it
}

// UpdateItemRequest is the request body for updating a stock item.
type UpdateItemRequest struct {
	Code              string            `json:"code"`
	Name              string            `json:"name" binding:"required"`
	Category          uom.Category      `json:"category"`
	SchemeOverride    uom.Scheme        `json:"schemeOverride"`
	UnitsPerContainer int64             `json:"unitsPerContainer"`
	ContainerML       decimal.Decimal   `json:"containerMl"`
	ServingML         decimal.Decimal   `json:"servingMl"`
	UnitCost          types.Money       `json:"unitCost"`
	SKU               *string           `json:"sku"`
	Barcode           *string           `json:"barcode"`
	SupplierID        *string           `json:"supplierId" binding:"omitempty,uuid"`
	Aliases           []string          `json:"aliases"`
	IsActive          bool              `json:"isActive"`
	Description       *string           `json:"description"`
	ParentID          *string           `json:"parentId"`
	IsFolder          bool              `json:"isFolder"`
	Attributes        entity.Attributes `json:"attributes"`
	Version           int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateItemRequest) ApplyTo(it *item.Item) {
	it.Code = r.Code
	it.Name = r.Name
	it.Category = r.Category
	it.SchemeOverride = r.SchemeOverride
	it.UnitsPerContainer = r.UnitsPerContainer
	it.ContainerML = r.ContainerML
	it.ServingML = r.ServingML
	it.UnitCost = r.UnitCost
	it.SKU = r.SKU
	it.Barcode = r.Barcode
	it.SupplierID = parseOptionalID(r.SupplierID)
	it.Aliases = r.Aliases
	it.IsActive = r.IsActive
	it.Description = r.Description
	it.ParentID = r.ParentID
	it.IsFolder = r.IsFolder
	it.Attributes = r.Attributes
	it.Version = r.Version
}

// --- Response DTOs ---

// ItemResponse is the response body for a stock item.
type ItemResponse struct {
	ID                string            `json:"id"`
	Code              string            `json:"code"`
	Name              string            `json:"name"`
	Category          uom.Category      `json:"category"`
	Scheme            uom.Scheme        `json:"scheme,omitempty"`
	SchemeOverride    uom.Scheme        `json:"schemeOverride,omitempty"`
	UnitsPerContainer int64             `json:"unitsPerContainer"`
	ContainerML       decimal.Decimal   `json:"containerMl"`
	ServingML         decimal.Decimal   `json:"servingMl"`
	UnitCost          types.Money       `json:"unitCost"`
	SKU               *string           `json:"sku,omitempty"`
	Barcode           *string           `json:"barcode,omitempty"`
	SupplierID        *string           `json:"supplierId,omitempty"`
	Aliases           []string          `json:"aliases,omitempty"`
	IsActive          bool              `json:"isActive"`
	Description       *string           `json:"description,omitempty"`
	ParentID          *string           `json:"parentId,omitempty"`
	IsFolder          bool              `json:"isFolder"`
	DeletionMark      bool              `json:"deletionMark"`
	Version           int               `json:"version"`
	Attributes        entity.Attributes `json:"attributes,omitempty"`
}

// FromItem creates response DTO from domain entity.
func FromItem(it *item.Item) *ItemResponse {
	resp := &ItemResponse{
		ID:                it.ID.String(),
		Code:              it.Code,
		Name:              it.Name,
		Category:          it.Category,
		SchemeOverride:    it.SchemeOverride,
		UnitsPerContainer: it.UnitsPerContainer,
		ContainerML:       it.ContainerML,
		ServingML:         it.ServingML,
		UnitCost:          it.UnitCost,
		SKU:               it.SKU,
		Barcode:           it.Barcode,
		Aliases:           it.Aliases,
		IsActive:          it.IsActive,
		Description:       it.Description,
		ParentID:          it.ParentID,
		IsFolder:          it.IsFolder,
		DeletionMark:      it.DeletionMark,
		Version:           it.Version,
		Attributes:        it.Attributes,
	}
	if it.SupplierID != nil {
		s := it.SupplierID.String()
		resp.SupplierID = &s
	}
	// Folders carry no measure; resolving a scheme for them would error.
	if !it.IsFolder {
		if scheme, err := it.Scheme(); err == nil {
			resp.Scheme = scheme
		}
	}
	return resp
}

// --- Conversion preview ---

// ConvertItemRequest is a raw count to run through the item's conversion
// scheme without recording anything.
type ConvertItemRequest struct {
	Full    decimal.Decimal `json:"full"`
	Partial decimal.Decimal `json:"partial"`
}

// ConvertItemResponse echoes the converted count.
type ConvertItemResponse struct {
	ItemID     string          `json:"itemId"`
	Scheme     uom.Scheme      `json:"scheme"`
	Normalized uom.Count       `json:"normalized"`
	Servings   decimal.Decimal `json:"servings"`
	Containers decimal.Decimal `json:"containers"`
	Value      types.Money     `json:"value"`
	Display    uom.Display     `json:"display"`
}
