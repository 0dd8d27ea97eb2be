package reviews

import (
	"context"
	"sync"
	"testing"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/pagination"
	"diasporan-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupReviewsTest(t *testing.T) (*Service, *gorm.DB, *domain.Listing) {
	db := testutil.NewDB(t)
	return &Service{DB: db}, db, testutil.Event(t, db, 10)
}

func completedBooking(t *testing.T, db *gorm.DB, listing *domain.Listing, userID uuid.UUID) *domain.Booking {
	return testutil.CreateBooking(t, db, domain.Booking{
		BookingType: domain.BookingEvent,
		ReferenceID: listing.ID,
		UserID:      userID,
		StartDate:   testutil.Day(-2),
		Status:      domain.BookingCompleted,
	})
}

func TestCreateReview_OncePerBooking(t *testing.T) {
	svc, db, ev := setupReviewsTest(t)
	user := uuid.New()
	b := completedBooking(t, db, ev, user)

	review, err := svc.CreateReview(context.Background(), user, CreateInput{BookingID: b.ID, Rating: 5, Title: "Great night"})
	require.NoError(t, err)
	assert.Equal(t, ev.ID, review.ListingID)
	assert.Equal(t, domain.ListingEvent, review.ListingType)

	_, err = svc.CreateReview(context.Background(), user, CreateInput{BookingID: b.ID, Rating: 4})
	assert.True(t, apperror.IsCode(err, apperror.CodeReviewExists))

	var l domain.Listing
	require.NoError(t, db.First(&l, "id = ?", ev.ID).Error)
	assert.Equal(t, 5.0, l.AverageRating)
	assert.Equal(t, 1, l.TotalReviews)
}

func TestCreateReview_RuleOrder(t *testing.T) {
	svc, db, ev := setupReviewsTest(t)
	user := uuid.New()

	// a foreign booking with a bad rating still reports BOOKING_NOT_FOUND first
	foreign := completedBooking(t, db, ev, uuid.New())
	_, err := svc.CreateReview(context.Background(), user, CreateInput{BookingID: foreign.ID, Rating: 9})
	assert.True(t, apperror.IsCode(err, apperror.CodeBookingNotFound))

	upcoming := testutil.CreateBooking(t, db, domain.Booking{
		BookingType: domain.BookingEvent, ReferenceID: ev.ID, UserID: user, StartDate: *ev.EventDate,
	})
	_, err = svc.CreateReview(context.Background(), user, CreateInput{BookingID: upcoming.ID, Rating: 9})
	assert.True(t, apperror.IsCode(err, apperror.CodeBookingNotCompleted))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	done := completedBooking(t, db, ev, user)
	_, err = svc.CreateReview(context.Background(), user, CreateInput{BookingID: done.ID, Rating: 0})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidRating))
	_, err = svc.CreateReview(context.Background(), user, CreateInput{BookingID: done.ID, Rating: 6})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidRating))

	_, err = svc.CreateReview(context.Background(), user, CreateInput{BookingID: done.ID, Rating: 3, ListingID: uuid.New()})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.CreateReview(context.Background(), user, CreateInput{BookingID: done.ID, Rating: 3})
	require.NoError(t, err)
	_, err = svc.CreateReview(context.Background(), user, CreateInput{BookingID: done.ID, Rating: 0})
	assert.True(t, apperror.IsCode(err, apperror.CodeReviewExists), "REVIEW_EXISTS wins over INVALID_RATING")
}

func TestCreateReview_ConcurrentDuplicates(t *testing.T) {
	svc, db, ev := setupReviewsTest(t)
	user := uuid.New()
	b := completedBooking(t, db, ev, user)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateReview(context.Background(), user, CreateInput{BookingID: b.ID, Rating: 4})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, apperror.IsCode(err, apperror.CodeReviewExists), "got %v", err)
	}
	assert.Equal(t, 1, ok)
	var count int64
	db.Model(&domain.Review{}).Where("booking_id = ?", b.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCanReview(t *testing.T) {
	svc, db, ev := setupReviewsTest(t)
	user := uuid.New()
	b := completedBooking(t, db, ev, user)

	got, err := svc.CanReview(context.Background(), user, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Eligible)

	review, err := svc.CreateReview(context.Background(), user, CreateInput{BookingID: b.ID, Rating: 4})
	require.NoError(t, err)

	got, err = svc.CanReview(context.Background(), user, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Eligible)
	assert.Equal(t, apperror.CodeReviewExists, got.Code)
	require.NotNil(t, got.ReviewID)
	assert.Equal(t, review.ID, *got.ReviewID)

	got, err = svc.CanReview(context.Background(), uuid.New(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, apperror.CodeBookingNotFound, got.Code)
}

func TestAggregateRecomputation(t *testing.T) {
	svc, db, ev := setupReviewsTest(t)
	var ids []uuid.UUID
	owners := map[uuid.UUID]uuid.UUID{}
	for _, rating := range []int{5, 4, 2} {
		user := uuid.New()
		b := completedBooking(t, db, ev, user)
		r, err := svc.CreateReview(context.Background(), user, CreateInput{BookingID: b.ID, Rating: rating})
		require.NoError(t, err)
		ids = append(ids, r.ID)
		owners[r.ID] = user
	}

	rating := func() (float64, int) {
		var l domain.Listing
		require.NoError(t, db.First(&l, "id = ?", ev.ID).Error)
		return l.AverageRating, l.TotalReviews
	}
	avg, total := rating()
	assert.InDelta(t, 3.67, avg, 0.001)
	assert.Equal(t, 3, total)

	three := 3
	_, err := svc.UpdateReview(context.Background(), owners[ids[2]], ids[2], UpdateInput{Rating: &three})
	require.NoError(t, err)
	avg, _ = rating()
	assert.InDelta(t, 4.0, avg, 0.001)

	_, err = svc.UpdateReview(context.Background(), uuid.New(), ids[2], UpdateInput{Rating: &three})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	bad := 7
	_, err = svc.UpdateReview(context.Background(), owners[ids[2]], ids[2], UpdateInput{Rating: &bad})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidRating))

	require.NoError(t, svc.DeleteReview(context.Background(), owners[ids[0]], ids[0]))
	avg, total = rating()
	assert.InDelta(t, 3.5, avg, 0.001)
	assert.Equal(t, 2, total)

	items, meta, err := svc.ListListingReviews(context.Background(), domain.ListingEvent, ev.ID, pagination.New(1, 1))
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(2), meta.Total)
	assert.True(t, meta.HasNext)
}

func TestAggregateRecomputation_ConcurrentReviews(t *testing.T) {
	svc, db, ev := setupReviewsTest(t)
	ratings := []int{5, 4, 3, 2, 1, 5}
	users := make([]uuid.UUID, len(ratings))
	bookings := make([]*domain.Booking, len(ratings))
	for i := range ratings {
		users[i] = uuid.New()
		bookings[i] = completedBooking(t, db, ev, users[i])
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ratings))
	for i, rating := range ratings {
		wg.Add(1)
		go func(i, rating int) {
			defer wg.Done()
			_, errs[i] = svc.CreateReview(context.Background(), users[i], CreateInput{BookingID: bookings[i].ID, Rating: rating})
		}(i, rating)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var l domain.Listing
	require.NoError(t, db.First(&l, "id = ?", ev.ID).Error)
	assert.Equal(t, len(ratings), l.TotalReviews)
	assert.InDelta(t, 3.33, l.AverageRating, 0.001)
}

func TestRecomputeRating_LocksListingRow(t *testing.T) {
	db := testutil.NewDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	pg, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	stmt := lockRatedListing(pg, uuid.New()).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, `FROM "listings"`)
	assert.Contains(t, sql, "FOR UPDATE")
	assert.NotContains(t, sql, "deleted_at")
}
