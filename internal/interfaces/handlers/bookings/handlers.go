package bookings

import (
	"time"

	booksvc "diasporan-backend/internal/application/bookings"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/interfaces/request"
	"diasporan-backend/internal/middleware"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *booksvc.Service
}

type createBookingRequest struct {
	BookingType     string  `json:"booking_type" validate:"required"`
	ReferenceID     string  `json:"reference_id" validate:"required,uuid"`
	StartDate       string  `json:"start_date"`
	EndDate         *string `json:"end_date"`
	Guests          *int    `json:"guests" validate:"omitempty,gte=1,lte=500"`
	TicketType      *string `json:"ticket_type" validate:"omitempty,max=100"`
	SpecialRequests string  `json:"special_requests" validate:"max=2000"`
}

type updateBookingRequest struct {
	Guests          *int    `json:"guests" validate:"omitempty,gte=1,lte=500"`
	StartDate       *string `json:"start_date"`
	EndDate         *string `json:"end_date"`
	SpecialRequests *string `json:"special_requests" validate:"omitempty,max=2000"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := request.ParseTime(raw)
	if err != nil {
		return time.Time{}, apperror.Validation(apperror.CodeValidation, field+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return t, nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r createBookingRequest) input() (booksvc.CreateInput, error) {
	bt, err := domain.ParseBookingType(r.BookingType)
	if err != nil {
		return booksvc.CreateInput{}, apperror.Validation(apperror.CodeValidation, err.Error())
	}
	in := booksvc.CreateInput{
		BookingType:     bt,
		ReferenceID:     uuid.MustParse(r.ReferenceID),
		Guests:          1,
		TicketType:      r.TicketType,
		SpecialRequests: r.SpecialRequests,
	}
	if r.Guests != nil {
		in.Guests = *r.Guests
	}
	if r.StartDate != "" {
		if in.StartDate, err = parseDate("start_date", r.StartDate); err != nil {
			return in, err
		}
	}
	if in.EndDate, err = parseOptionalDate("end_date", r.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

// POST /api/v1/bookings: 201 with the created booking. Honors Idempotency-Key.
func (h *Handlers) CreateBooking(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	var body createBookingRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	in, err := body.input()
	if err != nil {
		return response.Fail(c, err)
	}
	booking, err := h.Service.CreateBooking(c.UserContext(), userID, middleware.Email(c), in)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.SuccessCreated(c, "Booking created successfully", booking, nil)
}

// GET /api/v1/bookings?status=&type=&page=&limit=
func (h *Handlers) ListBookings(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	var f booksvc.ListFilter
	if s := c.Query("status"); s != "" {
		status := domain.BookingStatus(s)
		switch status {
		case domain.BookingPending, domain.BookingConfirmed, domain.BookingCompleted, domain.BookingCancelled:
			f.Status = &status
		default:
			return response.Fail(c, apperror.Validation(apperror.CodeValidation, "Unknown booking status "+s))
		}
	}
	if t := c.Query("type"); t != "" {
		bt, err := domain.ParseBookingType(t)
		if err != nil {
			return response.Fail(c, apperror.Validation(apperror.CodeValidation, err.Error()))
		}
		f.Type = &bt
	}
	items, meta, err := h.Service.ListUserBookings(c.UserContext(), userID, f, request.Page(c))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Bookings fetched successfully", fiber.Map{"items": items, "pagination": meta}, nil)
}

// GET /api/v1/bookings/:id
func (h *Handlers) GetBooking(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	booking, err := h.Service.GetBooking(c.UserContext(), id, userID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Booking fetched successfully", booking, nil)
}

// PATCH /api/v1/bookings/:id
func (h *Handlers) UpdateBooking(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var body updateBookingRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	patch := booksvc.UpdateInput{Guests: body.Guests, SpecialRequests: body.SpecialRequests}
	if patch.StartDate, err = parseOptionalDate("start_date", body.StartDate); err != nil {
		return response.Fail(c, err)
	}
	if patch.EndDate, err = parseOptionalDate("end_date", body.EndDate); err != nil {
		return response.Fail(c, err)
	}
	booking, err := h.Service.UpdateBooking(c.UserContext(), id, userID, patch)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Booking updated successfully", booking, nil)
}

// DELETE /api/v1/bookings/:id: cancels; the row is kept for history.
func (h *Handlers) CancelBooking(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var body cancelBookingRequest
	if len(c.Body()) > 0 {
		if err := request.Bind(c, &body); err != nil {
			return response.Fail(c, err)
		}
	}
	booking, err := h.Service.CancelBooking(c.UserContext(), id, userID, body.Reason)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Booking cancelled successfully", booking, nil)
}

// PATCH /api/v1/admin/bookings/:id/status
func (h *Handlers) TransitionBooking(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var body transitionRequest
	if err := request.Bind(c, &body); err != nil {
		return response.Fail(c, err)
	}
	booking, err := h.Service.TransitionBooking(c.UserContext(), id, domain.BookingStatus(body.Status))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Booking status updated", booking, nil)
}
