package dto

import (
	"bartally/internal/core/entity"
	"bartally/internal/domain/catalogs/venue"
)

// --- Request DTOs ---

// CreateVenueRequest is the request body for creating a venue.
type CreateVenueRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	Type        venue.VenueType   `json:"type" binding:"required"`
	Location    *string           `json:"location"`
	IsActive    *bool             `json:"isActive"`
	IsDefault   bool              `json:"isDefault"`
	Description *string           `json:"description"`
	ParentID    *string           `json:"parentId"`
	IsFolder    bool              `json:"isFolder"`
	Attributes  entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateVenueRequest) ToEntity() *venue.Venue {
	v := venue.NewVenue(r.Code, r.Name, r.Type)
	v.Location = r.Location
	if r.IsActive != nil {
		v.IsActive = *r.IsActive
	}
	v.IsDefault = r.IsDefault
	v.Description = r.Description
	v.ParentID = r.ParentID
	v.IsFolder = r.IsFolder
	v.Attributes = r.Attributes
	return v
}

// UpdateVenueRequest is the request body for updating a venue.
type UpdateVenueRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	Type        venue.VenueType   `json:"type" binding:"required"`
	Location    *string           `json:"location"`
	IsActive    bool              `json:"isActive"`
	IsDefault   bool              `json:"isDefault"`
	Description *string           `json:"description"`
	ParentID    *string           `json:"parentId"`
	IsFolder    bool              `json:"isFolder"`
	Attributes  entity.Attributes `json:"attributes"`
	Version     int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateVenueRequest) ApplyTo(v *venue.Venue) {
	v.Code = r.Code
	v.Name = r.Name
	v.Type = r.Type
	v.Location = r.Location
	v.IsActive = r.IsActive
	v.IsDefault = r.IsDefault
	v.Description = r.Description
	v.ParentID = r.ParentID
	v.IsFolder = r.IsFolder
	v.Attributes = r.Attributes
	v.Version = r.Version
}

// --- Response DTOs ---

// VenueResponse is the response body for a venue.
type VenueResponse struct {
	ID           string            `json:"id"`
	Code         string            `json:"code"`
	Name         string            `json:"name"`
	Type         venue.VenueType   `json:"type"`
	Location     *string           `json:"location,omitempty"`
	IsActive     bool              `json:"isActive"`
	IsDefault    bool              `json:"isDefault"`
	Description  *string           `json:"description,omitempty"`
	ParentID     *string           `json:"parentId,omitempty"`
	IsFolder     bool              `json:"isFolder"`
	DeletionMark bool              `json:"deletionMark"`
	Version      int               `json:"version"`
	Attributes   entity.Attributes `json:"attributes,omitempty"`
}

// FromVenue creates response DTO from domain entity.
func FromVenue(v *venue.Venue) *VenueResponse {
	return &VenueResponse{
		ID:           v.ID.String(),
		Code:         v.Code,
		Name:         v.Name,
		Type:         v.Type,
		Location:     v.Location,
		IsActive:     v.IsActive,
		IsDefault:    v.IsDefault,
		Description:  v.Description,
		ParentID:     v.ParentID,
		IsFolder:     v.IsFolder,
		DeletionMark: v.DeletionMark,
		Version:      v.Version,
		Attributes:   v.Attributes,
	}
}
