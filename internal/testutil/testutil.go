// Package testutil holds shared fixtures for service and handler tests.
package testutil

import (
	"testing"
	"time"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory sqlite database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Day returns midnight UTC n days from today.
func Day(n int) time.Time {
	return time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, n)
}

func CreateListing(t *testing.T, db *gorm.DB, l domain.Listing) *domain.Listing {
	t.Helper()
	if l.Title == "" {
		l.Title = string(l.Type) + " listing"
	}
	if l.Currency == "" {
		l.Currency = "USD"
	}
	require.NoError(t, db.Create(&l).Error)
	return &l
}

func Event(t *testing.T, db *gorm.DB, spots int) *domain.Listing {
	t.Helper()
	date := Day(30)
	return CreateListing(t, db, domain.Listing{
		Type:           domain.ListingEvent,
		Title:          "Afrobeats Night",
		City:           "Accra",
		Country:        "Ghana",
		Provider:       "Nightlife Co",
		EventDate:      &date,
		Price:          50,
		AvailableSpots: spots,
		TicketTiers:    []domain.TicketTier{{Name: "General", Price: 50}, {Name: "VIP", Price: 120}},
	})
}

func Accommodation(t *testing.T, db *gorm.DB, maxGuests int) *domain.Listing {
	t.Helper()
	return CreateListing(t, db, domain.Listing{
		Type:      domain.ListingAccommodation,
		Title:     "Osu Apartment",
		City:      "Accra",
		Country:   "Ghana",
		Provider:  "Host Ama",
		Price:     80,
		MaxGuests: maxGuests,
		Units:     1,
	})
}

func Transport(t *testing.T, db *gorm.DB, seats int, departures ...time.Time) *domain.Listing {
	t.Helper()
	dep := Day(10).Add(9 * time.Hour)
	if len(departures) == 0 {
		departures = []time.Time{dep}
	}
	return CreateListing(t, db, domain.Listing{
		Type:           domain.ListingTransport,
		Title:          "Accra to Kumasi Coach",
		City:           "Accra",
		Country:        "Ghana",
		Provider:       "VIP Jeoun",
		Origin:         "Accra",
		Destination:    "Kumasi",
		DepartureTime:  &departures[0],
		Departures:     departures,
		Price:          25,
		AvailableSeats: seats,
	})
}

// CreateBooking inserts a booking row directly, bypassing capacity accounting.
func CreateBooking(t *testing.T, db *gorm.DB, b domain.Booking) *domain.Booking {
	t.Helper()
	if b.UserID == uuid.Nil {
		b.UserID = uuid.New()
	}
	if b.Guests == 0 {
		b.Guests = 1
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	if b.Status == "" {
		b.Status = domain.BookingConfirmed
	}
	require.NoError(t, db.Create(&b).Error)
	return &b
}

// UserLocals is the identity shape the auth middleware stores under Locals("user").
func UserLocals(userID uuid.UUID, role string) map[string]interface{} {
	return map[string]interface{}{
		"user_id": userID.String(),
		"email":   "traveler@example.com",
		"role":    role,
	}
}
