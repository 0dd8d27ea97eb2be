package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review belongs to exactly one completed booking; booking_id is unique.
type Review struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BookingID   uuid.UUID                   `gorm:"column:booking_id;type:uuid;not null;uniqueIndex" json:"booking_id"`
	UserID      uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ListingType ListingType                 `gorm:"column:listing_type;type:varchar(20);not null;index:idx_reviews_listing" json:"listing_type"`
	ListingID   uuid.UUID                   `gorm:"column:listing_id;type:uuid;not null;index:idx_reviews_listing" json:"listing_id"`
	Rating      int                         `gorm:"column:rating;not null" json:"rating"`
	Title       string                      `gorm:"column:title" json:"title"`
	Comment     string                      `gorm:"column:comment;type:text" json:"comment"`
	Images      datatypes.JSONSlice[string] `gorm:"column:images;type:json" json:"images"`
	CreatedAt   time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
