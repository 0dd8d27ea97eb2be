package bookings

import (
	"context"
	"fmt"
	"math"
	"time"

	"diasporan-backend/internal/application/availability"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateInput is a booking request before any listing lookup.
type CreateInput struct {
	BookingType     domain.BookingType
	ReferenceID     uuid.UUID
	StartDate       time.Time
	EndDate         *time.Time
	Guests          int
	TicketType      *string
	SpecialRequests string
}

// ValidatedRequest is a booking that passed every per-type precondition against a
// snapshot of its listing. Capacity is re-checked when it is written.
type ValidatedRequest struct {
	Input      CreateInput
	Listing    *domain.Listing
	Dates      *availability.DateRange
	TotalPrice float64
	Status     domain.BookingStatus
}

// Validator runs the per-type booking rules and the read-only availability check.
type Validator struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now().UTC()
	}
	return time.Now().UTC()
}

func (v *Validator) ValidateBooking(ctx context.Context, in CreateInput) (*ValidatedRequest, error) {
	in.StartDate = in.StartDate.UTC()
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		in.EndDate = &end
	}
	switch in.BookingType {
	case domain.BookingAccommodation, domain.BookingEvent, domain.BookingTransport:
	case domain.BookingDining, domain.BookingFlight:
		return nil, apperror.NotImplemented(fmt.Sprintf("%s bookings are not supported yet", in.BookingType))
	default:
		return nil, apperror.Validation(apperror.CodeValidation, fmt.Sprintf("unknown booking type %q", in.BookingType))
	}

	db := v.DB.WithContext(ctx)
	listing, err := availability.LoadListing(db, in.BookingType.ListingType(), in.ReferenceID)
	if err != nil {
		return nil, err
	}
	req, err := applyRules(listing, in, v.now())
	if err != nil {
		return nil, err
	}

	quantity := in.Guests
	if in.BookingType == domain.BookingAccommodation {
		quantity = 1
	}
	res, err := availability.ForListing(db, listing, quantity, req.Dates)
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, availability.Shortfall(listing.Type, res.RemainingCapacity)
	}
	return req, nil
}

// applyRules checks the per-type shape of a booking and prices it. It does not
// touch capacity, so updates reuse it before applying their own capacity delta.
func applyRules(l *domain.Listing, in CreateInput, now time.Time) (*ValidatedRequest, error) {
	req := &ValidatedRequest{Input: in, Listing: l, Status: initialStatus(in.BookingType)}
	today := now.Truncate(24 * time.Hour)

	switch in.BookingType {
	case domain.BookingAccommodation:
		if in.EndDate == nil || in.StartDate.IsZero() || !in.StartDate.Before(*in.EndDate) {
			return nil, apperror.Validation(apperror.CodeInvalidDateRange, "start_date must be before end_date")
		}
		if in.StartDate.Before(today) {
			return nil, apperror.Validation(apperror.CodeInvalidDateRange, "start_date cannot be in the past")
		}
		if in.Guests < 1 {
			return nil, apperror.Validation(apperror.CodeValidation, "guests must be at least 1")
		}
		if l.MaxGuests > 0 && in.Guests > l.MaxGuests {
			return nil, apperror.Conflict(apperror.CodeInsufficientCapacity, fmt.Sprintf("This stay allows at most %d guests", l.MaxGuests))
		}
		req.Dates = &availability.DateRange{Start: in.StartDate, End: *in.EndDate}
		req.TotalPrice = l.Price * float64(domain.Nights(in.StartDate, *in.EndDate))

	case domain.BookingEvent:
		if in.Guests < 1 {
			return nil, apperror.Validation(apperror.CodeValidation, "guests must be at least 1")
		}
		if l.EventDate != nil {
			if l.EventDate.Before(now) {
				return nil, apperror.Conflict(apperror.CodeNotAvailable, "This event has already taken place")
			}
			req.Input.StartDate = l.EventDate.UTC()
		} else if in.StartDate.IsZero() {
			return nil, apperror.Validation(apperror.CodeValidation, "start_date is required")
		}
		unit := l.Price
		if in.TicketType != nil && *in.TicketType != "" {
			tier, ok := l.Tier(*in.TicketType)
			if !ok {
				return nil, apperror.Validation(apperror.CodeInvalidTicketType, fmt.Sprintf("ticket type %q is not offered for this event", *in.TicketType))
			}
			unit = tier.Price
		}
		req.TotalPrice = unit * float64(in.Guests)

	case domain.BookingTransport:
		if in.Guests < 1 {
			return nil, apperror.Validation(apperror.CodeValidation, "guests must be at least 1")
		}
		if !l.HasDeparture(in.StartDate) {
			return nil, apperror.Validation(apperror.CodeInvalidDeparture, "start_date does not match a scheduled departure")
		}
		if in.StartDate.Before(now) {
			return nil, apperror.Validation(apperror.CodeInvalidDeparture, "This departure has already left")
		}
		req.TotalPrice = l.Price * float64(in.Guests)

	case domain.BookingDining, domain.BookingFlight:
		return nil, apperror.NotImplemented(fmt.Sprintf("%s bookings are not supported yet", in.BookingType))
	}

	req.TotalPrice = math.Round(req.TotalPrice*100) / 100
	return req, nil
}

// initialStatus: stays wait for host confirmation; tickets and seats confirm on purchase.
func initialStatus(t domain.BookingType) domain.BookingStatus {
	switch t {
	case domain.BookingAccommodation:
		return domain.BookingPending
	case domain.BookingEvent, domain.BookingTransport, domain.BookingDining, domain.BookingFlight:
		return domain.BookingConfirmed
	}
	return domain.BookingPending
}
