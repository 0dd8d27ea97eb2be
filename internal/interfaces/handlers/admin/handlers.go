package admin

import (
	"encoding/json"

	lesvc "diasporan-backend/internal/application/listingevents"
	listsvc "diasporan-backend/internal/application/listings"
	"diasporan-backend/internal/domain"
	listhandler "diasporan-backend/internal/interfaces/handlers/listings"
	"diasporan-backend/internal/interfaces/request"
	"diasporan-backend/internal/middleware"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves listing curation for admins.
type Handlers struct {
	Listings *listsvc.Service
	Events   *lesvc.Service
}

type createListingRequest struct {
	Type string        `json:"type" validate:"required"`
	Data listsvc.Input `json:"data"`
}

// patchListingRequest is either {type, data} or {restore: true}.
type patchListingRequest struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Restore bool            `json:"restore"`
}

// POST /api/v1/admin/listings: 201
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	actorID, _ := middleware.UserID(c)
	var body createListingRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	lt, err := domain.ParseListingType(body.Type)
	if err != nil {
		return response.Fail(c, apperror.Validation(apperror.CodeValidation, err.Error()))
	}
	listing, err := h.Listings.CreateListing(c.UserContext(), actorID, lt, body.Data)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// GET /api/v1/admin/listings/:type?include_deleted=true
func (h *Handlers) ListListings(c *fiber.Ctx) error {
	lt, err := request.ListingTypeParam(c)
	if err != nil {
		return response.Fail(c, err)
	}
	plan, err := listhandler.ParseSearch(c, lt, c.QueryBool("include_deleted", true))
	if err != nil {
		return response.Fail(c, err)
	}
	result, err := h.Listings.ListListings(c.UserContext(), plan)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listings fetched successfully", result, nil)
}

// GET /api/v1/admin/listing/:id: deleted listings included.
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	listing, err := h.Listings.FindListing(c.UserContext(), id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// PATCH /api/v1/admin/listing/:id
func (h *Handlers) PatchListing(c *fiber.Ctx) error {
	actorID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var body patchListingRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	if body.Restore {
		listing, err := h.Listings.RestoreListing(c.UserContext(), actorID, id)
		if err != nil {
			return response.Fail(c, err)
		}
		return response.Success(c, "Listing restored successfully", listing, nil)
	}

	if body.Type == "" || len(body.Data) == 0 {
		return response.Fail(c, apperror.Validation(apperror.CodeValidation, "Provide {type, data} or {restore: true}"))
	}
	lt, err := domain.ParseListingType(body.Type)
	if err != nil {
		return response.Fail(c, apperror.Validation(apperror.CodeValidation, err.Error()))
	}
	var in listsvc.Input
	if err := json.Unmarshal(body.Data, &in); err != nil {
		return response.Fail(c, apperror.Validation(apperror.CodeValidation, "Invalid listing data"))
	}
	if err := request.Validate(&in); err != nil {
		return response.Fail(c, err)
	}
	listing, err := h.Listings.UpdateListing(c.UserContext(), actorID, id, lt, in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing updated successfully", listing, nil)
}

// DELETE /api/v1/admin/listing/:id: soft delete; future bookings are cancelled.
func (h *Handlers) DeleteListing(c *fiber.Ctx) error {
	actorID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	listing, err := h.Listings.SoftDeleteListing(c.UserContext(), actorID, id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing deleted successfully", listing, nil)
}

// GET /api/v1/admin/listing/:id/events
func (h *Handlers) ListingEvents(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	events, err := h.Events.GetListingEvents(c.UserContext(), id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing events fetched successfully", events, nil)
}
