package availability

import (
	"context"
	"fmt"
	"time"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/infrastructure/database"
	"diasporan-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Valid() bool {
	return r.Start.Before(r.End)
}

func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Result is the outcome of an availability check. Not having enough capacity is a
// normal Available=false result, never an error.
type Result struct {
	Available         bool `json:"available"`
	RemainingCapacity int  `json:"remainingCapacity"`
}

// Checker answers read-only capacity questions. Writers must re-validate under
// their own transaction.
type Checker struct {
	DB *gorm.DB
}

func (c *Checker) CheckAvailability(ctx context.Context, lt domain.ListingType, listingID uuid.UUID, quantity int, dates *DateRange) (Result, error) {
	if quantity < 1 {
		return Result{}, apperror.Validation(apperror.CodeValidation, "quantity must be at least 1")
	}
	db := c.DB.WithContext(ctx)
	listing, err := LoadListing(db, lt, listingID)
	if err != nil {
		return Result{}, err
	}
	return ForListing(db, listing, quantity, dates)
}

// LoadListing fetches an active listing of the given type.
func LoadListing(db *gorm.DB, lt domain.ListingType, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := db.Where("id = ? AND type = ?", id, lt).First(&l).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound(apperror.CodeNotFound, "Listing not found")
		}
		return nil, database.Classify(err)
	}
	return &l, nil
}

// ForListing evaluates capacity for an already loaded listing. db may be a transaction.
func ForListing(db *gorm.DB, l *domain.Listing, quantity int, dates *DateRange) (Result, error) {
	switch l.Type {
	case domain.ListingFlight, domain.ListingTransport, domain.ListingEvent:
		remaining := l.Remaining()
		return Result{Available: remaining >= quantity, RemainingCapacity: remaining}, nil
	case domain.ListingAccommodation:
		if dates == nil || !dates.Valid() {
			return Result{}, apperror.Validation(apperror.CodeInvalidDateRange, "start_date must be before end_date")
		}
		taken, err := CountOverlapping(db, l.ID, *dates, uuid.Nil)
		if err != nil {
			return Result{}, err
		}
		remaining := l.Units - int(taken)
		if remaining < 0 {
			remaining = 0
		}
		return Result{Available: remaining >= 1, RemainingCapacity: remaining}, nil
	case domain.ListingDining:
		return Result{}, apperror.NotImplemented("Availability is not tracked for dining venues")
	}
	return Result{}, apperror.Validation(apperror.CodeValidation, fmt.Sprintf("unsupported listing type %q", l.Type))
}

// CountOverlapping counts pending/confirmed stays on listingID that intersect r.
// exclude skips one booking, used when a stay is being moved.
func CountOverlapping(db *gorm.DB, listingID uuid.UUID, r DateRange, exclude uuid.UUID) (int64, error) {
	q := db.Model(&domain.Booking{}).
		Where("reference_id = ? AND booking_type = ?", listingID, domain.BookingAccommodation).
		Where("status IN ?", domain.ActiveStatuses).
		Where("start_date < ? AND end_date > ?", r.End, r.Start)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, database.Classify(err)
	}
	return n, nil
}

// Shortfall is the conflict reported when a listing cannot take a booking.
func Shortfall(lt domain.ListingType, remaining int) *apperror.Error {
	switch lt {
	case domain.ListingEvent:
		if remaining <= 0 {
			return apperror.Conflict(apperror.CodeSoldOut, "This event is sold out")
		}
		return apperror.Conflict(apperror.CodeInsufficientCapacity, fmt.Sprintf("Only %d tickets remaining", remaining))
	case domain.ListingTransport, domain.ListingFlight:
		if remaining <= 0 {
			return apperror.Conflict(apperror.CodeSoldOut, "No seats remaining")
		}
		return apperror.Conflict(apperror.CodeInsufficientSeats, fmt.Sprintf("Only %d seats remaining", remaining))
	case domain.ListingAccommodation, domain.ListingDining:
		return apperror.Conflict(apperror.CodeNotAvailable, "Not available for the selected dates")
	}
	return apperror.Conflict(apperror.CodeNotAvailable, "Not available")
}
