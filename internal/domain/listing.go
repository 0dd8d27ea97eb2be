package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingType is the closed set of listing variants.
type ListingType string

const (
	ListingFlight        ListingType = "flight"
	ListingAccommodation ListingType = "accommodation"
	ListingEvent         ListingType = "event"
	ListingTransport     ListingType = "transport"
	ListingDining        ListingType = "dining"
)

// ListingTypes lists every variant in display order.
var ListingTypes = []ListingType{ListingFlight, ListingAccommodation, ListingEvent, ListingTransport, ListingDining}

var ErrUnknownListingType = errors.New("unknown listing type")

// ParseListingType accepts the singular, plural and route forms used by the web app
// ("accommodations", "dining_venues", "transport-options").
func ParseListingType(s string) (ListingType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flight", "flights":
		return ListingFlight, nil
	case "accommodation", "accommodations":
		return ListingAccommodation, nil
	case "event", "events":
		return ListingEvent, nil
	case "transport", "transports", "transport_options", "transport-options":
		return ListingTransport, nil
	case "dining", "dining_venues", "dining-venues", "restaurants":
		return ListingDining, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownListingType, s)
}

// CapacityColumn returns the remaining-units counter for quantity variants.
// Accommodation capacity is derived from overlapping bookings and dining is untracked,
// so both return "".
func (t ListingType) CapacityColumn() string {
	switch t {
	case ListingFlight, ListingTransport:
		return "available_seats"
	case ListingEvent:
		return "available_spots"
	case ListingAccommodation, ListingDining:
		return ""
	}
	return ""
}

// DateColumn is the column the date window filter and the default sort apply to.
func (t ListingType) DateColumn() string {
	switch t {
	case ListingFlight, ListingTransport:
		return "departure_time"
	case ListingEvent:
		return "event_date"
	case ListingAccommodation, ListingDining:
		return ""
	}
	return ""
}

// TicketTier is one priced ticket class of an event.
type TicketTier struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Listing is a bookable offering. All five variants share one table keyed by Type;
// variant-specific columns stay zero for the others.
type Listing struct {
	ID          uuid.UUID   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Type        ListingType `gorm:"column:type;type:varchar(20);not null;index" json:"type"`
	Title       string      `gorm:"column:title;not null" json:"title"`
	Description string      `gorm:"column:description;type:text" json:"description"`
	City        string      `gorm:"column:city;index" json:"city"`
	Country     string      `gorm:"column:country;index" json:"country"`
	Category    string      `gorm:"column:category" json:"category"`
	Provider    string      `gorm:"column:provider" json:"provider"`
	Address     string      `gorm:"column:address" json:"address,omitempty"`

	Origin        string     `gorm:"column:origin" json:"origin,omitempty"`
	Destination   string     `gorm:"column:destination" json:"destination,omitempty"`
	DepartureTime *time.Time `gorm:"column:departure_time;index" json:"departure_time,omitempty"`
	ArrivalTime   *time.Time `gorm:"column:arrival_time" json:"arrival_time,omitempty"`
	EventDate     *time.Time `gorm:"column:event_date;index" json:"event_date,omitempty"`

	Price    float64 `gorm:"column:price;type:decimal(12,2);not null;default:0;index" json:"price"`
	Currency string  `gorm:"column:currency;type:varchar(3);not null;default:'USD'" json:"currency"`

	AvailableSeats int `gorm:"column:available_seats;not null;default:0" json:"available_seats"`
	MaxGuests      int `gorm:"column:max_guests;not null;default:0" json:"max_guests"`
	Units          int `gorm:"column:units;not null;default:1" json:"units"`
	AvailableSpots int `gorm:"column:available_spots;not null;default:0" json:"available_spots"`

	TicketTiers datatypes.JSONSlice[TicketTier] `gorm:"column:ticket_tiers;type:json" json:"ticket_tiers,omitempty"`
	Departures  datatypes.JSONSlice[time.Time]  `gorm:"column:departures;type:json" json:"departures,omitempty"`
	Amenities   datatypes.JSONSlice[string]     `gorm:"column:amenities;type:json" json:"amenities,omitempty"`
	Images      datatypes.JSONSlice[string]     `gorm:"column:images;type:json" json:"images,omitempty"`

	AverageRating float64 `gorm:"column:average_rating;type:decimal(3,2);not null;default:0;index" json:"average_rating"`
	TotalReviews  int     `gorm:"column:total_reviews;not null;default:0" json:"total_reviews"`

	CreatedBy *uuid.UUID     `gorm:"column:created_by;type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets id and the accommodation unit default.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Type == ListingAccommodation && l.Units <= 0 {
		l.Units = 1
	}
	return nil
}

// Deleted reports whether the listing is soft-deleted.
func (l *Listing) Deleted() bool {
	return l.DeletedAt.Valid
}

// Remaining returns the counter value for quantity variants.
func (l *Listing) Remaining() int {
	switch l.Type.CapacityColumn() {
	case "available_seats":
		return l.AvailableSeats
	case "available_spots":
		return l.AvailableSpots
	}
	return 0
}

// Tier looks up a declared ticket tier by case-insensitive name.
func (l *Listing) Tier(name string) (TicketTier, bool) {
	for _, t := range l.TicketTiers {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return TicketTier{}, false
}

// HasDeparture reports whether at is a scheduled departure of a transport option.
// Options without an explicit schedule have a single departure at DepartureTime.
func (l *Listing) HasDeparture(at time.Time) bool {
	if len(l.Departures) == 0 {
		return l.DepartureTime != nil && l.DepartureTime.Equal(at)
	}
	for _, d := range l.Departures {
		if d.Equal(at) {
			return true
		}
	}
	return false
}
