package handlers

import (
	"bartally/internal/domain/catalogs/venue"
	"bartally/internal/infrastructure/http/v1/dto"
)

// Type alias keeps handler signatures readable.
type VenueHTTPHandler = CatalogHandler[
	*venue.Venue,
	dto.CreateVenueRequest,
	dto.UpdateVenueRequest,
]

// NewVenueHandler wires the generic catalog handler for venues.
func NewVenueHandler(
	base *BaseHandler,
	service *venue.Service,
) *VenueHTTPHandler {

	config := CatalogHandlerConfig[
		*venue.Venue,
		dto.CreateVenueRequest,
		dto.UpdateVenueRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "venue",

		MapCreateDTO: func(req dto.CreateVenueRequest) *venue.Venue {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateVenueRequest, existing *venue.Venue) *venue.Venue {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(entity *venue.Venue) any {
			return dto.FromVenue(entity)
		},
	}

	return NewCatalogHandler(base, config)
}
