package listings

import (
	"diasporan-backend/internal/application/availability"
	listsvc "diasporan-backend/internal/application/listings"
	"diasporan-backend/internal/application/reviews"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/interfaces/request"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the public catalogue. No authentication is required.
type Handlers struct {
	Service *listsvc.Service
	Checker *availability.Checker
	Reviews *reviews.Service
}

// ParseSearch reads filters, sort and pagination from the query string.
func ParseSearch(c *fiber.Ctx, lt domain.ListingType, includeDeleted bool) (listsvc.QueryPlan, error) {
	f := listsvc.Filters{
		City:        c.Query("city"),
		Country:     c.Query("country"),
		Category:    c.Query("category"),
		Provider:    c.Query("provider"),
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	}
	var err error
	bounds := []struct {
		name string
		dst  **float64
	}{
		{"min_price", &f.MinPrice},
		{"max_price", &f.MaxPrice},
		{"min_rating", &f.MinRating},
		{"max_rating", &f.MaxRating},
	}
	for _, b := range bounds {
		if *b.dst, err = request.FloatQuery(c, b.name); err != nil {
			return listsvc.QueryPlan{}, err
		}
	}
	if f.From, err = request.TimeQuery(c, "from"); err != nil {
		return listsvc.QueryPlan{}, err
	}
	if f.To, err = request.TimeQuery(c, "to"); err != nil {
		return listsvc.QueryPlan{}, err
	}
	sort := listsvc.Sort{By: c.Query("sort_by"), Order: c.Query("sort_order")}
	return listsvc.BuildQuery(lt, f, request.Page(c), sort, includeDeleted), nil
}

// GET /api/v1/listings/:type
func (h *Handlers) ListListings(c *fiber.Ctx) error {
	lt, err := request.ListingTypeParam(c)
	if err != nil {
		return response.Fail(c, err)
	}
	plan, err := ParseSearch(c, lt, false)
	if err != nil {
		return response.Fail(c, err)
	}
	result, err := h.Service.ListListings(c.UserContext(), plan)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listings fetched successfully", result, nil)
}

// GET /api/v1/listings/:type/:id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	lt, err := request.ListingTypeParam(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	listing, err := h.Service.GetListing(c.UserContext(), lt, id, false)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// GET /api/v1/listings/:type/:id/availability?quantity=&start_date=&end_date=
func (h *Handlers) CheckAvailability(c *fiber.Ctx) error {
	lt, err := request.ListingTypeParam(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	quantity, err := request.IntQuery(c, "quantity", 1)
	if err != nil {
		return response.Fail(c, err)
	}
	start, err := request.TimeQuery(c, "start_date")
	if err != nil {
		return response.Fail(c, err)
	}
	end, err := request.TimeQuery(c, "end_date")
	if err != nil {
		return response.Fail(c, err)
	}
	var dates *availability.DateRange
	if start != nil || end != nil {
		if start == nil || end == nil {
			return response.Fail(c, apperror.Validation(apperror.CodeInvalidDateRange, "start_date and end_date must be given together"))
		}
		dates = &availability.DateRange{Start: *start, End: *end}
	}
	result, err := h.Checker.CheckAvailability(c.UserContext(), lt, id, quantity, dates)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Availability checked", result, nil)
}

// GET /api/v1/listings/:type/:id/reviews
func (h *Handlers) ListReviews(c *fiber.Ctx) error {
	lt, err := request.ListingTypeParam(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	items, meta, err := h.Reviews.ListListingReviews(c.UserContext(), lt, id, request.Page(c))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Reviews fetched successfully", fiber.Map{"items": items, "pagination": meta}, nil)
}
