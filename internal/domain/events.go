package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListingDeleted is raised inside the soft-delete transaction. Subscribers act on
// the same transaction so the cascade commits or rolls back with the delete.
type ListingDeleted struct {
	ListingID uuid.UUID
	Type      ListingType
	At        time.Time
}
