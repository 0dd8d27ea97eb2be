package saved

import (
	savedsvc "diasporan-backend/internal/application/saved"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/interfaces/request"
	"diasporan-backend/internal/middleware"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *savedsvc.Service
}

type saveRequest struct {
	ItemType string `json:"item_type" validate:"required"`
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Notes    string `json:"notes" validate:"max=1000"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// GET /api/v1/saved?type=
func (h *Handlers) ListSaved(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	var lt *domain.ListingType
	if raw := c.Query("type"); raw != "" {
		parsed, err := domain.ParseListingType(raw)
		if err != nil {
			return response.Fail(c, apperror.Validation(apperror.CodeValidation, err.Error()))
		}
		lt = &parsed
	}
	items, meta, err := h.Service.ListSaved(c.UserContext(), userID, lt, request.Page(c))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Saved items fetched successfully", fiber.Map{"items": items, "pagination": meta}, nil)
}

// POST /api/v1/saved
func (h *Handlers) SaveItem(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	var body saveRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	lt, err := domain.ParseListingType(body.ItemType)
	if err != nil {
		return response.Fail(c, apperror.Validation(apperror.CodeValidation, err.Error()))
	}
	item, err := h.Service.SaveItem(c.UserContext(), userID, lt, uuid.MustParse(body.ItemID), body.Notes)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Item saved successfully", item, nil)
}

// PATCH /api/v1/saved/:id
func (h *Handlers) UpdateNotes(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var body notesRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	item, err := h.Service.UpdateNotes(c.UserContext(), userID, id, body.Notes)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Saved item updated successfully", item, nil)
}

// DELETE /api/v1/saved/:id
func (h *Handlers) RemoveSaved(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	if err := h.Service.RemoveSaved(c.UserContext(), userID, id); err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Saved item removed successfully", fiber.Map{"id": id}, nil)
}
