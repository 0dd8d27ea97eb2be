package profile

import (
	profilesvc "diasporan-backend/internal/application/profile"
	"diasporan-backend/internal/middleware"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *profilesvc.Service
}

// GetProfile GET /api/v1/profile: created on first access.
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	p, err := h.Service.GetProfile(c.UserContext(), userID, middleware.Email(c))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Profile fetched successfully", p, nil)
}

// UpdateProfile PUT /api/v1/profile: partial; unknown fields are ignored.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil || len(body) == 0 {
		return response.Error(c, "Missing update fields", fiber.StatusBadRequest, nil)
	}
	p, err := h.Service.UpdateProfile(c.UserContext(), userID, middleware.Email(c), body)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Profile updated successfully", p, nil)
}
