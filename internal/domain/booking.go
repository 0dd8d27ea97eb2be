package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingType mirrors ListingType; each booking consumes one listing variant.
type BookingType string

const (
	BookingAccommodation BookingType = "accommodation"
	BookingEvent         BookingType = "event"
	BookingTransport     BookingType = "transport"
	BookingDining        BookingType = "dining"
	BookingFlight        BookingType = "flight"
)

func ParseBookingType(s string) (BookingType, error) {
	lt, err := ParseListingType(s)
	if err != nil {
		return "", err
	}
	return BookingTypeFor(lt), nil
}

// ListingType returns the listing variant a booking of this type references.
func (t BookingType) ListingType() ListingType {
	switch t {
	case BookingAccommodation:
		return ListingAccommodation
	case BookingEvent:
		return ListingEvent
	case BookingTransport:
		return ListingTransport
	case BookingDining:
		return ListingDining
	case BookingFlight:
		return ListingFlight
	}
	panic(fmt.Sprintf("domain: unhandled booking type %q", string(t)))
}

func BookingTypeFor(lt ListingType) BookingType {
	switch lt {
	case ListingAccommodation:
		return BookingAccommodation
	case ListingEvent:
		return BookingEvent
	case ListingTransport:
		return BookingTransport
	case ListingDining:
		return BookingDining
	case ListingFlight:
		return BookingFlight
	}
	panic(fmt.Sprintf("domain: unhandled listing type %q", string(lt)))
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// ActiveStatuses hold capacity on the referenced listing.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed}

func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// CanTransition reports whether the forward-only lifecycle allows s -> next.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	}
	return false
}

const (
	CancelledByUser   = "user"
	CancelledBySystem = "system"
	CancelledByAdmin  = "admin"

	ReasonListingRemoved = "listing_removed"
)

type Booking struct {
	ID                 uuid.UUID     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BookingType        BookingType   `gorm:"column:booking_type;type:varchar(20);not null" json:"booking_type"`
	ReferenceID        uuid.UUID     `gorm:"column:reference_id;type:uuid;not null;index" json:"reference_id"`
	UserID             uuid.UUID     `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ContactEmail       string        `gorm:"column:contact_email" json:"-"`
	StartDate          time.Time     `gorm:"column:start_date;not null;index" json:"start_date"`
	EndDate            *time.Time    `gorm:"column:end_date" json:"end_date,omitempty"`
	Guests             int           `gorm:"column:guests;not null" json:"guests"`
	TicketType         *string       `gorm:"column:ticket_type" json:"ticket_type,omitempty"`
	Status             BookingStatus `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	TotalPrice         float64       `gorm:"column:total_price;type:decimal(12,2);not null" json:"total_price"`
	Currency           string        `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	SpecialRequests    string        `gorm:"column:special_requests;type:text" json:"special_requests,omitempty"`
	CancellationReason *string       `gorm:"column:cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledBy        *string       `gorm:"column:cancelled_by;type:varchar(10)" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time    `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Nights is the length of an accommodation stay; zero without an end date.
func (b *Booking) Nights() int {
	if b.EndDate == nil {
		return 0
	}
	return Nights(b.StartDate, *b.EndDate)
}

// Nights counts whole days in [start, end).
func Nights(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	n := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		n++
	}
	return n
}
