package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedItem is a user's bookmark of a listing. One row per (user, type, item).
type SavedItem struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID   `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_saved_items_user_item" json:"user_id"`
	ItemType  ListingType `gorm:"column:item_type;type:varchar(20);not null;uniqueIndex:idx_saved_items_user_item" json:"item_type"`
	ItemID    uuid.UUID   `gorm:"column:item_id;type:uuid;not null;uniqueIndex:idx_saved_items_user_item" json:"item_id"`
	Notes     string      `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (SavedItem) TableName() string {
	return "saved_items"
}

func (s *SavedItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
