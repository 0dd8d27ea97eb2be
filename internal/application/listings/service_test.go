package listings

import (
	"context"
	"errors"
	"testing"

	"diasporan-backend/internal/application/bookings"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/pagination"
	"diasporan-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupListingsTest(t *testing.T) (*Service, *bookings.Service, *gorm.DB) {
	db := testutil.NewDB(t)
	bookingSvc := &bookings.Service{DB: db}
	svc := &Service{DB: db}
	svc.Subscribe(bookingSvc)
	return svc, bookingSvc, db
}

func strPtr(s string) *string    { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }

func TestSoftDeleteListing_CascadesToFutureBookings(t *testing.T) {
	svc, _, db := setupListingsTest(t)
	stay := testutil.Accommodation(t, db, 2)
	end := testutil.Day(7)
	future := testutil.CreateBooking(t, db, domain.Booking{
		BookingType: domain.BookingAccommodation, ReferenceID: stay.ID,
		StartDate: testutil.Day(5), EndDate: &end, Status: domain.BookingPending,
	})
	pastEnd := testutil.Day(-3)
	past := testutil.CreateBooking(t, db, domain.Booking{
		BookingType: domain.BookingAccommodation, ReferenceID: stay.ID,
		StartDate: testutil.Day(-5), EndDate: &pastEnd, Status: domain.BookingConfirmed,
	})

	actor := uuid.New()
	deleted, err := svc.SoftDeleteListing(context.Background(), actor, stay.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())

	var got domain.Booking
	require.NoError(t, db.First(&got, "id = ?", future.ID).Error)
	assert.Equal(t, domain.BookingCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, domain.ReasonListingRemoved, *got.CancellationReason)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, domain.CancelledBySystem, *got.CancelledBy)

	var untouched domain.Booking
	require.NoError(t, db.First(&untouched, "id = ?", past.ID).Error)
	assert.Equal(t, domain.BookingConfirmed, untouched.Status)
	assert.Nil(t, untouched.CancellationReason)

	_, err = svc.GetListing(context.Background(), domain.ListingAccommodation, stay.ID, false)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
	found, err := svc.GetListing(context.Background(), domain.ListingAccommodation, stay.ID, true)
	require.NoError(t, err)
	assert.True(t, found.Deleted())

	var events []domain.ListingEventRecord
	require.NoError(t, db.Where("listing_id = ?", stay.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ListingEventDeleted, events[0].EventType)
	require.NotNil(t, events[0].ActorID)
	assert.Equal(t, actor, *events[0].ActorID)

	_, err = svc.SoftDeleteListing(context.Background(), actor, stay.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))
}

func TestSoftDeleteListing_RestoresCounterCapacity(t *testing.T) {
	svc, bookingSvc, db := setupListingsTest(t)
	ev := testutil.Event(t, db, 5)
	_, err := bookingSvc.CreateBooking(context.Background(), uuid.New(), "", bookings.CreateInput{
		BookingType: domain.BookingEvent, ReferenceID: ev.ID, Guests: 2,
	})
	require.NoError(t, err)

	_, err = svc.SoftDeleteListing(context.Background(), uuid.New(), ev.ID)
	require.NoError(t, err)

	var l domain.Listing
	require.NoError(t, db.Unscoped().First(&l, "id = ?", ev.ID).Error)
	assert.Equal(t, 5, l.AvailableSpots)

	_, err = bookingSvc.CreateBooking(context.Background(), uuid.New(), "", bookings.CreateInput{
		BookingType: domain.BookingEvent, ReferenceID: ev.ID, Guests: 1,
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

type failingSubscriber struct{}

func (failingSubscriber) OnListingDeleted(context.Context, *gorm.DB, domain.ListingDeleted) (func(context.Context), error) {
	return nil, errors.New("boom")
}

func TestSoftDeleteListing_SubscriberFailureRollsBack(t *testing.T) {
	svc, _, db := setupListingsTest(t)
	svc.Subscribe(failingSubscriber{})
	ev := testutil.Event(t, db, 3)
	b := testutil.CreateBooking(t, db, domain.Booking{
		BookingType: domain.BookingEvent, ReferenceID: ev.ID, StartDate: *ev.EventDate,
	})

	_, err := svc.SoftDeleteListing(context.Background(), uuid.New(), ev.ID)
	require.Error(t, err)

	var l domain.Listing
	require.NoError(t, db.First(&l, "id = ?", ev.ID).Error)
	assert.False(t, l.Deleted())
	var got domain.Booking
	require.NoError(t, db.First(&got, "id = ?", b.ID).Error)
	assert.Equal(t, domain.BookingConfirmed, got.Status)
	var count int64
	db.Model(&domain.ListingEventRecord{}).Where("listing_id = ?", ev.ID).Count(&count)
	assert.Zero(t, count)
}

func TestRestoreListing_DoesNotReviveBookings(t *testing.T) {
	svc, _, db := setupListingsTest(t)
	ev := testutil.Event(t, db, 3)
	b := testutil.CreateBooking(t, db, domain.Booking{
		BookingType: domain.BookingEvent, ReferenceID: ev.ID, StartDate: *ev.EventDate,
	})
	_, err := svc.SoftDeleteListing(context.Background(), uuid.New(), ev.ID)
	require.NoError(t, err)

	restored, err := svc.RestoreListing(context.Background(), uuid.New(), ev.ID)
	require.NoError(t, err)
	assert.False(t, restored.Deleted())

	_, err = svc.GetListing(context.Background(), domain.ListingEvent, ev.ID, false)
	require.NoError(t, err)
	var got domain.Booking
	require.NoError(t, db.First(&got, "id = ?", b.ID).Error)
	assert.Equal(t, domain.BookingCancelled, got.Status)

	_, err = svc.RestoreListing(context.Background(), uuid.New(), ev.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))

	var types []string
	db.Model(&domain.ListingEventRecord{}).Where("listing_id = ?", ev.ID).Order("created_at ASC").Pluck("event_type", &types)
	assert.ElementsMatch(t, []string{domain.ListingEventDeleted, domain.ListingEventRestored}, types)
}

func TestCreateAndUpdateListing(t *testing.T) {
	svc, _, db := setupListingsTest(t)
	actor := uuid.New()

	_, err := svc.CreateListing(context.Background(), actor, domain.ListingEvent, Input{Price: f64Ptr(10)})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	l, err := svc.CreateListing(context.Background(), actor, domain.ListingEvent, Input{
		Title:          strPtr("  Chale Wote  "),
		City:           strPtr("Accra"),
		Price:          f64Ptr(15),
		AvailableSpots: intPtr(100),
		Currency:       strPtr("ghs"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Chale Wote", l.Title)
	assert.Equal(t, "GHS", l.Currency)
	require.NotNil(t, l.CreatedBy)

	updated, err := svc.UpdateListing(context.Background(), actor, l.ID, domain.ListingEvent, Input{Price: f64Ptr(20)})
	require.NoError(t, err)
	assert.Equal(t, 20.0, updated.Price)
	assert.Equal(t, 100, updated.AvailableSpots)

	_, err = svc.UpdateListing(context.Background(), actor, l.ID, domain.ListingTransport, Input{Price: f64Ptr(5)})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	_, err = svc.UpdateListing(context.Background(), actor, l.ID, domain.ListingEvent, Input{Price: f64Ptr(-1)})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	_, err = svc.UpdateListing(context.Background(), actor, uuid.New(), domain.ListingEvent, Input{Price: f64Ptr(5)})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = svc.SoftDeleteListing(context.Background(), actor, l.ID)
	require.NoError(t, err)
	_, err = svc.UpdateListing(context.Background(), actor, l.ID, domain.ListingEvent, Input{Price: f64Ptr(5)})
	assert.Equal(t, apperror.KindInvalidState, apperror.KindOf(err))

	var types []string
	db.Model(&domain.ListingEventRecord{}).Where("listing_id = ?", l.ID).Pluck("event_type", &types)
	assert.ElementsMatch(t, []string{domain.ListingEventCreated, domain.ListingEventUpdated, domain.ListingEventDeleted}, types)
}

func TestListListings_Pagination(t *testing.T) {
	svc, _, db := setupListingsTest(t)
	date := testutil.Day(20)
	for i := 0; i < 45; i++ {
		testutil.CreateListing(t, db, domain.Listing{Type: domain.ListingEvent, EventDate: &date, Price: float64(i)})
	}
	testutil.Accommodation(t, db, 2)

	plan := BuildQuery(domain.ListingEvent, Filters{}, pagination.New(2, 20), Sort{}, false)
	res, err := svc.ListListings(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, res.Items, 20)
	assert.Equal(t, int64(45), res.Pagination.Total)
	assert.Equal(t, 3, res.Pagination.TotalPages)
	assert.True(t, res.Pagination.HasNext)
	assert.True(t, res.Pagination.HasPrev)

	again, err := svc.ListListings(context.Background(), BuildQuery(domain.ListingEvent, Filters{}, pagination.New(2, 20), Sort{}, false))
	require.NoError(t, err)
	for i := range res.Items {
		assert.Equal(t, res.Items[i].ID, again.Items[i].ID)
	}

	seen := map[uuid.UUID]bool{}
	for page := 1; page <= 3; page++ {
		r, err := svc.ListListings(context.Background(), BuildQuery(domain.ListingEvent, Filters{}, pagination.New(page, 20), Sort{}, false))
		require.NoError(t, err)
		for _, l := range r.Items {
			assert.False(t, seen[l.ID], "listing %s on two pages", l.ID)
			seen[l.ID] = true
		}
	}
	assert.Len(t, seen, 45)
}

func TestListListings_FiltersAndDeleted(t *testing.T) {
	svc, _, db := setupListingsTest(t)
	cheap := testutil.CreateListing(t, db, domain.Listing{Type: domain.ListingAccommodation, City: "Accra", Price: 40, AverageRating: 4.5})
	testutil.CreateListing(t, db, domain.Listing{Type: domain.ListingAccommodation, City: "ACCRA", Price: 120, AverageRating: 3})
	testutil.CreateListing(t, db, domain.Listing{Type: domain.ListingAccommodation, City: "Lagos", Price: 60})
	gone := testutil.CreateListing(t, db, domain.Listing{Type: domain.ListingAccommodation, City: "accra", Price: 50})
	_, err := svc.SoftDeleteListing(context.Background(), uuid.New(), gone.ID)
	require.NoError(t, err)

	list := func(f Filters, includeDeleted bool) []domain.Listing {
		res, err := svc.ListListings(context.Background(),
			BuildQuery(domain.ListingAccommodation, f, pagination.New(1, 0), Sort{By: "price", Order: "asc"}, includeDeleted))
		require.NoError(t, err)
		return res.Items
	}

	assert.Len(t, list(Filters{City: "accra"}, false), 2)
	assert.Len(t, list(Filters{City: "accra"}, true), 3)

	items := list(Filters{City: "ccr", MaxPrice: f64Ptr(100)}, false)
	require.Len(t, items, 1)
	assert.Equal(t, cheap.ID, items[0].ID)

	assert.Len(t, list(Filters{MinPrice: f64Ptr(40), MaxPrice: f64Ptr(60)}, false), 2)
	assert.Len(t, list(Filters{MinRating: f64Ptr(4)}, false), 1)
	assert.Empty(t, list(Filters{City: "%"}, false))
}

func TestBuildQuery_SortFallback(t *testing.T) {
	p := pagination.New(1, 10)

	plan := BuildQuery(domain.ListingTransport, Filters{}, p, Sort{By: "password; DROP TABLE listings"}, false)
	assert.Equal(t, "departure_time", plan.OrderBy)
	assert.False(t, plan.Desc)

	plan = BuildQuery(domain.ListingAccommodation, Filters{}, p, Sort{By: "event_date"}, false)
	assert.Equal(t, "created_at", plan.OrderBy)
	assert.True(t, plan.Desc)

	plan = BuildQuery(domain.ListingEvent, Filters{}, p, Sort{By: "PRICE", Order: "desc"}, false)
	assert.Equal(t, "price", plan.OrderBy)
	assert.True(t, plan.Desc)

	assert.Equal(t,
		BuildQuery(domain.ListingEvent, Filters{City: "Accra"}, p, Sort{}, false),
		BuildQuery(domain.ListingEvent, Filters{City: "Accra"}, p, Sort{}, false))
}
