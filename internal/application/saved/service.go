package saved

import (
	"context"
	"strings"

	"diasporan-backend/internal/application/availability"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/infrastructure/database"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages a user's saved listings.
type Service struct {
	DB *gorm.DB
}

// SaveItem bookmarks an active listing. Saving the same listing twice is a conflict.
func (s *Service) SaveItem(ctx context.Context, userID uuid.UUID, lt domain.ListingType, itemID uuid.UUID, notes string) (*domain.SavedItem, error) {
	db := s.DB.WithContext(ctx)
	if _, err := availability.LoadListing(db, lt, itemID); err != nil {
		return nil, err
	}
	item := &domain.SavedItem{
		UserID:   userID,
		ItemType: lt,
		ItemID:   itemID,
		Notes:    strings.TrimSpace(notes),
	}
	if err := db.Create(item).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.Conflict(apperror.CodeAlreadySaved, "This item is already saved")
		}
		return nil, database.Classify(err)
	}
	return item, nil
}

// ListSaved pages the user's saved items, newest first. A nil type lists all.
func (s *Service) ListSaved(ctx context.Context, userID uuid.UUID, lt *domain.ListingType, p pagination.Params) ([]domain.SavedItem, pagination.Meta, error) {
	q := s.DB.WithContext(ctx).Model(&domain.SavedItem{}).Where("user_id = ?", userID)
	if lt != nil {
		q = q.Where("item_type = ?", *lt)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, database.Classify(err)
	}
	items := make([]domain.SavedItem, 0, p.Limit)
	if err := q.Order("created_at DESC").Order("id ASC").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, pagination.Meta{}, database.Classify(err)
	}
	return items, p.Meta(total), nil
}

func (s *Service) UpdateNotes(ctx context.Context, userID, id uuid.UUID, notes string) (*domain.SavedItem, error) {
	db := s.DB.WithContext(ctx)
	res := db.Model(&domain.SavedItem{}).Where("id = ? AND user_id = ?", id, userID).Update("notes", strings.TrimSpace(notes))
	if res.Error != nil {
		return nil, database.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.NotFound(apperror.CodeNotFound, "Saved item not found")
	}
	var item domain.SavedItem
	if err := db.Where("id = ?", id).First(&item).Error; err != nil {
		return nil, database.Classify(err)
	}
	return &item, nil
}

func (s *Service) RemoveSaved(ctx context.Context, userID, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.SavedItem{})
	if res.Error != nil {
		return database.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound(apperror.CodeNotFound, "Saved item not found")
	}
	return nil
}
