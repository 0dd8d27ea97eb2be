package uploads

import (
	uploadsvc "diasporan-backend/internal/application/uploads"
	"diasporan-backend/internal/interfaces/request"
	"diasporan-backend/internal/middleware"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
}

func (h *Handlers) sign(c *fiber.Ctx, bucket string) error {
	userID, _ := middleware.UserID(c)
	var req uploadRequest
	if err := request.Bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	res, err := h.Service.SignImageUpload(c.UserContext(), bucket, userID, req.FileName)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}

// UploadReviewImage POST /api/v1/uploads/review-image
func (h *Handlers) UploadReviewImage(c *fiber.Ctx) error {
	return h.sign(c, uploadsvc.BucketReviewImages)
}

// UploadAvatar POST /api/v1/uploads/avatar
func (h *Handlers) UploadAvatar(c *fiber.Ctx) error {
	return h.sign(c, uploadsvc.BucketAvatars)
}
