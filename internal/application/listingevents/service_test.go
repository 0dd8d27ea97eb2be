package listingevents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"diasporan-backend/internal/application/listings"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	sent []Message
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, msgs ...Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msgs...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestGetListingEvents(t *testing.T) {
	db := testutil.NewDB(t)
	lsvc := &listings.Service{DB: db}
	svc := &Service{DB: db}
	title := "Detty December Party"
	actor := uuid.New()

	l, err := lsvc.CreateListing(context.Background(), actor, domain.ListingEvent, listings.Input{Title: &title})
	require.NoError(t, err)
	_, err = lsvc.SoftDeleteListing(context.Background(), actor, l.ID)
	require.NoError(t, err)

	events, err := svc.GetListingEvents(context.Background(), l.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.ElementsMatch(t, []string{domain.ListingEventCreated, domain.ListingEventDeleted},
		[]string{events[0].EventType, events[1].EventType})

	_, err = svc.GetListingEvents(context.Background(), uuid.New())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestRelay_Flush(t *testing.T) {
	db := testutil.NewDB(t)
	lsvc := &listings.Service{DB: db}
	title := "Cape Coast Shuttle"
	l, err := lsvc.CreateListing(context.Background(), uuid.New(), domain.ListingTransport, listings.Input{Title: &title})
	require.NoError(t, err)

	pub := &fakePublisher{err: errors.New("broker down")}
	relay := &Relay{DB: db, Publisher: pub, BatchSize: 10}

	_, err = relay.Flush(context.Background())
	require.Error(t, err)
	var pending int64
	db.Model(&domain.ListingEventRecord{}).Where("published_at IS NULL").Count(&pending)
	assert.Equal(t, int64(1), pending, "failed publish leaves events pending")

	pub.err = nil
	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, l.ID.String(), pub.sent[0].Key)
	assert.Equal(t, domain.ListingEventCreated, pub.sent[0].Headers["event-type"])

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.sent[0].Value, &env))
	assert.Equal(t, "CREATED", env["event_type"])
	assert.Equal(t, "Cape Coast Shuttle", env["data"].(map[string]interface{})["title"])

	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
