package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingEventRecord_IsDistinctFromEventListings(t *testing.T) {
	assert.Equal(t, ListingType("event"), ListingEvent)
	lt, err := ParseListingType("event")
	require.NoError(t, err)
	assert.Equal(t, ListingEvent, lt)

	rec := ListingEventRecord{ListingID: uuid.New(), EventType: ListingEventCreated}
	assert.Equal(t, "listing_events", rec.TableName())
	require.NoError(t, rec.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, rec.EventID)
}
