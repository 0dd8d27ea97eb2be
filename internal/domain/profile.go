package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Profile holds app-side user details. Credentials live with the identity provider;
// UserID is the provider's subject.
type Profile struct {
	UserID      uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Email       string         `gorm:"column:email" json:"email"`
	FullName    string         `gorm:"column:full_name" json:"full_name"`
	Phone       string         `gorm:"column:phone" json:"phone,omitempty"`
	HomeCountry string         `gorm:"column:home_country" json:"home_country,omitempty"`
	CurrentCity string         `gorm:"column:current_city" json:"current_city,omitempty"`
	Bio         string         `gorm:"column:bio;type:text" json:"bio,omitempty"`
	AvatarURL   string         `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
