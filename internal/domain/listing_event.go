package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ListingEventCreated  = "CREATED"
	ListingEventUpdated  = "UPDATED"
	ListingEventDeleted  = "DELETED"
	ListingEventRestored = "RESTORED"
)

// ListingEventRecord is the audit trail of admin listing changes. Rows with a nil
// PublishedAt are pending relay to the event bus.
type ListingEventRecord struct {
	EventID     uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID   uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	EventType   string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData   datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	ActorID     *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	PublishedAt *time.Time     `gorm:"column:published_at;index" json:"published_at,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (ListingEventRecord) TableName() string {
	return "listing_events"
}

func (le *ListingEventRecord) BeforeCreate(tx *gorm.DB) error {
	if le.EventID == uuid.Nil {
		le.EventID = uuid.New()
	}
	return nil
}
