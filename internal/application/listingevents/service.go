package listingevents

import (
	"context"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/infrastructure/database"
	"diasporan-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// GetListingEvents returns a listing's audit trail, oldest first. Deleted listings
// keep their history.
func (s *Service) GetListingEvents(ctx context.Context, listingID uuid.UUID) ([]domain.ListingEventRecord, error) {
	if listingID == uuid.Nil {
		return nil, apperror.Validation(apperror.CodeValidation, "Listing ID is required")
	}
	var exists int64
	if err := s.DB.WithContext(ctx).Unscoped().Model(&domain.Listing{}).Where("id = ?", listingID).Count(&exists).Error; err != nil {
		return nil, database.Classify(err)
	}
	if exists == 0 {
		return nil, apperror.NotFound(apperror.CodeNotFound, "Listing not found")
	}

	events := []domain.ListingEventRecord{}
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at ASC").Order("event_id ASC").Find(&events).Error; err != nil {
		return nil, database.Classify(err)
	}
	return events, nil
}
