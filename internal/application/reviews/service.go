package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/infrastructure/database"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB *gorm.DB
}

// CreateInput is a review submission. ListingType and ListingID are optional; when
// set they must name the booked listing.
type CreateInput struct {
	BookingID   uuid.UUID
	ListingType domain.ListingType
	ListingID   uuid.UUID
	Rating      int
	Title       string
	Comment     string
	Images      []string
}

// UpdateInput is a partial review edit.
type UpdateInput struct {
	Rating  *int
	Title   *string
	Comment *string
	Images  *[]string
}

// Eligibility answers whether a booking can still be reviewed. Code is the rule that
// failed, empty when Eligible.
type Eligibility struct {
	Eligible bool       `json:"eligible"`
	Code     string     `json:"code,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	ReviewID *uuid.UUID `json:"review_id,omitempty"`
}

// CanReview reports eligibility without side effects. Rule failures are part of the
// answer; only store failures are returned as errors.
func (s *Service) CanReview(ctx context.Context, userID, bookingID uuid.UUID) (Eligibility, error) {
	_, err := eligibleBooking(s.DB.WithContext(ctx), userID, bookingID)
	if err == nil {
		return Eligibility{Eligible: true}, nil
	}
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return Eligibility{}, database.Classify(err)
	}
	out := Eligibility{Code: appErr.Code, Reason: appErr.Message}
	if appErr.Code == apperror.CodeReviewExists {
		var existing domain.Review
		if s.DB.WithContext(ctx).Select("id").Where("booking_id = ?", bookingID).First(&existing).Error == nil {
			out.ReviewID = &existing.ID
		}
	}
	return out, nil
}

// eligibleBooking applies the ownership, completion and uniqueness rules in order.
func eligibleBooking(db *gorm.DB, userID, bookingID uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.Where("id = ? AND user_id = ?", bookingID, userID).First(&b).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound(apperror.CodeBookingNotFound, "Booking not found")
		}
		return nil, err
	}
	if b.Status != domain.BookingCompleted {
		return nil, apperror.Forbidden(apperror.CodeBookingNotCompleted, "Only completed bookings can be reviewed")
	}
	var existing int64
	if err := db.Model(&domain.Review{}).Where("booking_id = ?", bookingID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperror.Conflict(apperror.CodeReviewExists, "This booking has already been reviewed")
	}
	return &b, nil
}

func (s *Service) CreateReview(ctx context.Context, userID uuid.UUID, in CreateInput) (*domain.Review, error) {
	var review *domain.Review
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := eligibleBooking(tx, userID, in.BookingID)
		if err != nil {
			return err
		}
		if !domain.ValidRating(in.Rating) {
			return apperror.Validation(apperror.CodeInvalidRating, fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
		}
		lt := b.BookingType.ListingType()
		if (in.ListingType != "" && in.ListingType != lt) || (in.ListingID != uuid.Nil && in.ListingID != b.ReferenceID) {
			return apperror.Validation(apperror.CodeValidation, "listing does not match the booking")
		}

		review = &domain.Review{
			BookingID:   b.ID,
			UserID:      userID,
			ListingType: lt,
			ListingID:   b.ReferenceID,
			Rating:      in.Rating,
			Title:       strings.TrimSpace(in.Title),
			Comment:     strings.TrimSpace(in.Comment),
			Images:      in.Images,
		}
		if err := tx.Create(review).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.Conflict(apperror.CodeReviewExists, "This booking has already been reviewed")
			}
			return err
		}
		return recomputeRating(tx, review.ListingID)
	})
	if err != nil {
		return nil, database.Classify(err)
	}
	log.Info().Str("review_id", review.ID.String()).Str("listing_id", review.ListingID.String()).Int("rating", review.Rating).Msg("Review created")
	return review, nil
}

// UpdateReview edits one of the user's reviews. Other users' reviews are not found.
func (s *Service) UpdateReview(ctx context.Context, userID, reviewID uuid.UUID, in UpdateInput) (*domain.Review, error) {
	var review domain.Review
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedReview(tx, userID, reviewID, &review); err != nil {
			return err
		}
		if in.Rating != nil {
			if !domain.ValidRating(*in.Rating) {
				return apperror.Validation(apperror.CodeInvalidRating, fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
			}
			review.Rating = *in.Rating
		}
		if in.Title != nil {
			review.Title = strings.TrimSpace(*in.Title)
		}
		if in.Comment != nil {
			review.Comment = strings.TrimSpace(*in.Comment)
		}
		if in.Images != nil {
			review.Images = *in.Images
		}
		if err := tx.Save(&review).Error; err != nil {
			return err
		}
		if in.Rating == nil {
			return nil
		}
		return recomputeRating(tx, review.ListingID)
	})
	if err != nil {
		return nil, database.Classify(err)
	}
	return &review, nil
}

func (s *Service) DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review domain.Review
		if err := ownedReview(tx, userID, reviewID, &review); err != nil {
			return err
		}
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return recomputeRating(tx, review.ListingID)
	})
	return database.Classify(err)
}

// ListListingReviews pages a listing's reviews, newest first.
func (s *Service) ListListingReviews(ctx context.Context, lt domain.ListingType, listingID uuid.UUID, p pagination.Params) ([]domain.Review, pagination.Meta, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Review{}).
		Where("listing_type = ? AND listing_id = ?", lt, listingID).
		Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, database.Classify(err)
	}
	items := make([]domain.Review, 0, p.Limit)
	if err := q.Order("created_at DESC").Order("id ASC").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, pagination.Meta{}, database.Classify(err)
	}
	return items, p.Meta(total), nil
}

func ownedReview(tx *gorm.DB, userID, reviewID uuid.UUID, out *domain.Review) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ? AND user_id = ?", reviewID, userID).First(out).Error
	if database.IsNotFound(err) {
		return apperror.NotFound(apperror.CodeNotFound, "Review not found")
	}
	return err
}

// lockRatedListing takes the listing row lock that serialises rating writers. A
// writer that waited sees the committed reviews of the one before it.
func lockRatedListing(tx *gorm.DB, listingID uuid.UUID) *gorm.DB {
	return tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").Where("id = ?", listingID).Take(&domain.Listing{})
}

// recomputeRating rebuilds the listing's aggregate from its reviews under the
// listing row lock.
func recomputeRating(tx *gorm.DB, listingID uuid.UUID) error {
	if err := lockRatedListing(tx, listingID).Error; err != nil && !database.IsNotFound(err) {
		return err
	}
	var agg struct {
		Avg   float64
		Total int64
	}
	err := tx.Model(&domain.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS total").
		Where("listing_id = ?", listingID).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	avg := float64(int64(agg.Avg*100+0.5)) / 100
	return tx.Unscoped().Model(&domain.Listing{}).Where("id = ?", listingID).
		UpdateColumns(map[string]interface{}{
			"average_rating": avg,
			"total_reviews":  agg.Total,
		}).Error
}
