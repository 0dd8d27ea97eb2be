package reviews

import (
	reviewsvc "diasporan-backend/internal/application/reviews"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/interfaces/request"
	"diasporan-backend/internal/middleware"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *reviewsvc.Service
}

// Rating is range-checked by the service so the eligibility rules keep their order.
type createReviewRequest struct {
	BookingID   string   `json:"booking_id" validate:"required,uuid"`
	ListingType string   `json:"listing_type"`
	ListingID   string   `json:"listing_id" validate:"omitempty,uuid"`
	Rating      int      `json:"rating"`
	Title       string   `json:"title" validate:"max=200"`
	Comment     string   `json:"comment" validate:"max=5000"`
	Images      []string `json:"images" validate:"max=10,dive,http_url"`
}

type updateReviewRequest struct {
	Rating  *int      `json:"rating"`
	Title   *string   `json:"title" validate:"omitempty,max=200"`
	Comment *string   `json:"comment" validate:"omitempty,max=5000"`
	Images  *[]string `json:"images" validate:"omitempty,max=10,dive,http_url"`
}

// GET /api/v1/reviews/eligibility/:booking_id
func (h *Handlers) CanReview(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	bookingID, err := request.UUIDParam(c, "booking_id")
	if err != nil {
		return response.Fail(c, err)
	}
	out, err := h.Service.CanReview(c.UserContext(), userID, bookingID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Eligibility checked", out, nil)
}

// POST /api/v1/reviews: 201. Honors Idempotency-Key.
func (h *Handlers) CreateReview(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	var body createReviewRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	in := reviewsvc.CreateInput{
		BookingID: uuid.MustParse(body.BookingID),
		Rating:    body.Rating,
		Title:     body.Title,
		Comment:   body.Comment,
		Images:    body.Images,
	}
	if body.ListingType != "" {
		lt, err := domain.ParseListingType(body.ListingType)
		if err != nil {
			return response.Fail(c, apperror.Validation(apperror.CodeValidation, err.Error()))
		}
		in.ListingType = lt
	}
	if body.ListingID != "" {
		in.ListingID = uuid.MustParse(body.ListingID)
	}
	review, err := h.Service.CreateReview(c.UserContext(), userID, in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Review created successfully", review, nil)
}

// PATCH /api/v1/reviews/:id
func (h *Handlers) UpdateReview(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var body updateReviewRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	review, err := h.Service.UpdateReview(c.UserContext(), userID, id, reviewsvc.UpdateInput{
		Rating:  body.Rating,
		Title:   body.Title,
		Comment: body.Comment,
		Images:  body.Images,
	})
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Review updated successfully", review, nil)
}

// DELETE /api/v1/reviews/:id
func (h *Handlers) DeleteReview(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	if err := h.Service.DeleteReview(c.UserContext(), userID, id); err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Review deleted successfully", fiber.Map{"id": id}, nil)
}
