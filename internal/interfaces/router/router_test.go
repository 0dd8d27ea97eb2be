package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"diasporan-backend/internal/config"
	"diasporan-backend/internal/constants"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/middleware"
	"diasporan-backend/internal/pkg/jwt"
	"diasporan-backend/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "router-test-secret"

type testEnv struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
	jwt *jwt.Service
}

type result struct {
	Status int
	Header map[string]string
	Body   map[string]interface{}
}

func (r result) data() map[string]interface{} {
	d, _ := r.Body["data"].(map[string]interface{})
	return d
}

func (r result) code() string {
	e, _ := r.Body["error"].(map[string]interface{})
	s, _ := e["code"].(string)
	return s
}

func setupRouterTest(t *testing.T) *testEnv {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db := testutil.NewDB(t)
	cfg := &config.Config{
		Env:               "test",
		SupabaseJWTSecret: testSecret,
		HealthAdminKey:    "health-key",
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Hour,
	}
	app, _, _, err := CreateAppWith(cfg, Deps{DB: db, Redis: rdb})
	require.NoError(t, err)
	return &testEnv{t: t, app: app, db: db, jwt: jwt.New(testSecret)}
}

func (e *testEnv) token(userID uuid.UUID, role string) string {
	tok, err := e.jwt.GenerateToken(userID, "traveler@example.com", role, time.Hour)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) do(method, path, token string, body interface{}, headers ...string) result {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(e.t, err)
	raw, _ := io.ReadAll(resp.Body)
	out := result{Status: resp.StatusCode, Header: map[string]string{}}
	for k, v := range resp.Header {
		out.Header[k] = v[0]
	}
	_ = json.Unmarshal(raw, &out.Body)
	return out
}

func TestPublicListings(t *testing.T) {
	env := setupRouterTest(t)
	ev := testutil.Event(t, env.db, 10)
	testutil.Transport(t, env.db, 40)

	res := env.do("GET", "/api/v1/listings/events?city=accra", "", nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	items := res.data()["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, ev.ID.String(), items[0].(map[string]interface{})["id"])
	pag := res.data()["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pag["total"])
	assert.Equal(t, float64(20), pag["limit"])

	res = env.do("GET", "/api/v1/listings/events?min_price=abc", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, res.Status)

	res = env.do("GET", "/api/v1/listings/spaceships", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, res.Status)

	res = env.do("GET", "/api/v1/listings/event/"+ev.ID.String(), "", nil)
	assert.Equal(t, fiber.StatusOK, res.Status)

	res = env.do("GET", "/api/v1/listings/accommodation/"+ev.ID.String(), "", nil)
	assert.Equal(t, fiber.StatusNotFound, res.Status)

	res = env.do("GET", "/api/v1/listings/event/"+ev.ID.String()+"/availability?quantity=4", "", nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, true, res.data()["available"])
	assert.Equal(t, float64(10), res.data()["remainingCapacity"])

	res = env.do("GET", "/api/v1/listings/event/"+ev.ID.String()+"/availability?quantity=11", "", nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, false, res.data()["available"])
}

func TestBookingFlow(t *testing.T) {
	env := setupRouterTest(t)
	ev := testutil.Event(t, env.db, 3)
	user := uuid.New()
	tok := env.token(user, constants.Traveler)

	body := map[string]interface{}{"booking_type": "event", "reference_id": ev.ID.String(), "guests": 2, "ticket_type": "VIP"}
	res := env.do("POST", "/api/v1/bookings", "", body)
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)

	res = env.do("POST", "/api/v1/bookings", tok, body, middleware.IdempotencyHeader, "book-1")
	require.Equal(t, fiber.StatusCreated, res.Status, res.Body)
	bookingID := res.data()["id"].(string)
	assert.Equal(t, "confirmed", res.data()["status"])
	assert.Equal(t, float64(240), res.data()["total_price"])

	// a retried request is replayed, not booked twice
	replay := env.do("POST", "/api/v1/bookings", tok, body, middleware.IdempotencyHeader, "book-1")
	assert.Equal(t, fiber.StatusCreated, replay.Status)
	assert.Equal(t, "true", replay.Header[middleware.ReplayedHeader])
	assert.Equal(t, bookingID, replay.data()["id"])

	res = env.do("POST", "/api/v1/bookings", tok, body, middleware.IdempotencyHeader, "book-2")
	assert.Equal(t, fiber.StatusConflict, res.Status)
	assert.Equal(t, "INSUFFICIENT_CAPACITY", res.code())

	res = env.do("POST", "/api/v1/bookings", tok, map[string]interface{}{"booking_type": "dining", "reference_id": ev.ID.String()})
	assert.Equal(t, fiber.StatusNotImplemented, res.Status)

	res = env.do("POST", "/api/v1/bookings", tok, map[string]interface{}{"booking_type": "event"})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
	assert.Equal(t, "VALIDATION_ERROR", res.code())

	res = env.do("GET", "/api/v1/bookings", tok, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Len(t, res.data()["items"], 1)

	other := env.token(uuid.New(), constants.Traveler)
	res = env.do("GET", "/api/v1/bookings/"+bookingID, other, nil)
	assert.Equal(t, fiber.StatusNotFound, res.Status)

	res = env.do("DELETE", "/api/v1/bookings/"+bookingID, tok, map[string]string{"reason": "plans changed"})
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, "cancelled", res.data()["status"])

	res = env.do("DELETE", "/api/v1/bookings/"+bookingID, tok, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
	assert.Equal(t, "INVALID_STATE", res.code())
}

func TestAdminListingLifecycle(t *testing.T) {
	env := setupRouterTest(t)
	admin := env.token(uuid.New(), constants.Admin)
	traveler := uuid.New()
	travelerTok := env.token(traveler, constants.Traveler)

	create := map[string]interface{}{
		"type": "event",
		"data": map[string]interface{}{
			"title":           "Highlife Festival",
			"city":            "Lagos",
			"country":         "Nigeria",
			"event_date":      testutil.Day(20).Format(time.RFC3339),
			"price":           30,
			"available_spots": 5,
		},
	}
	res := env.do("POST", "/api/v1/admin/listings", travelerTok, create)
	assert.Equal(t, fiber.StatusForbidden, res.Status)

	res = env.do("POST", "/api/v1/admin/listings", admin, create)
	require.Equal(t, fiber.StatusCreated, res.Status, res.Body)
	id := res.data()["id"].(string)

	res = env.do("POST", "/api/v1/bookings", travelerTok, map[string]interface{}{"booking_type": "event", "reference_id": id, "guests": 2})
	require.Equal(t, fiber.StatusCreated, res.Status, res.Body)
	bookingID := res.data()["id"].(string)

	res = env.do("PATCH", "/api/v1/admin/listing/"+id, admin, map[string]interface{}{"type": "accommodation", "data": map[string]interface{}{"price": 10}})
	assert.Equal(t, fiber.StatusBadRequest, res.Status, "type must match the stored listing")

	res = env.do("PATCH", "/api/v1/admin/listing/"+id, admin, map[string]interface{}{"type": "event", "data": map[string]interface{}{"price": 35}})
	require.Equal(t, fiber.StatusOK, res.Status, res.Body)
	assert.Equal(t, float64(35), res.data()["price"])

	res = env.do("DELETE", "/api/v1/admin/listing/"+id, admin, nil)
	require.Equal(t, fiber.StatusOK, res.Status, res.Body)

	res = env.do("GET", "/api/v1/bookings/"+bookingID, travelerTok, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, "cancelled", res.data()["status"])
	assert.Equal(t, domain.ReasonListingRemoved, res.data()["cancellation_reason"])

	res = env.do("GET", "/api/v1/listings/event/"+id, "", nil)
	assert.Equal(t, fiber.StatusNotFound, res.Status)
	res = env.do("GET", "/api/v1/admin/listing/"+id, admin, nil)
	assert.Equal(t, fiber.StatusOK, res.Status)

	res = env.do("DELETE", "/api/v1/admin/listing/"+id, admin, nil)
	assert.Equal(t, "INVALID_STATE", res.code())

	res = env.do("PATCH", "/api/v1/admin/listing/"+id, admin, map[string]interface{}{"restore": true})
	require.Equal(t, fiber.StatusOK, res.Status, res.Body)
	res = env.do("GET", "/api/v1/listings/event/"+id, "", nil)
	assert.Equal(t, fiber.StatusOK, res.Status)

	res = env.do("GET", "/api/v1/admin/listing/"+id+"/events", admin, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	var types []string
	for _, e := range res.Body["data"].([]interface{}) {
		types = append(types, e.(map[string]interface{})["event_type"].(string))
	}
	assert.Equal(t, []string{"CREATED", "UPDATED", "DELETED", "RESTORED"}, types)
}

func TestReviewFlow(t *testing.T) {
	env := setupRouterTest(t)
	ev := testutil.Event(t, env.db, 10)
	user := uuid.New()
	tok := env.token(user, constants.Traveler)
	admin := env.token(uuid.New(), constants.Admin)

	res := env.do("POST", "/api/v1/bookings", tok, map[string]interface{}{"booking_type": "event", "reference_id": ev.ID.String()})
	require.Equal(t, fiber.StatusCreated, res.Status, res.Body)
	bookingID := res.data()["id"].(string)

	res = env.do("POST", "/api/v1/reviews", tok, map[string]interface{}{"booking_id": bookingID, "rating": 5})
	assert.Equal(t, fiber.StatusForbidden, res.Status)
	assert.Equal(t, "BOOKING_NOT_COMPLETED", res.code())

	res = env.do("PATCH", "/api/v1/admin/bookings/"+bookingID+"/status", admin, map[string]string{"status": "completed"})
	require.Equal(t, fiber.StatusOK, res.Status, res.Body)

	res = env.do("GET", "/api/v1/reviews/eligibility/"+bookingID, tok, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, true, res.data()["eligible"])

	res = env.do("POST", "/api/v1/reviews", tok, map[string]interface{}{"booking_id": bookingID, "rating": 4, "title": "Loved it"})
	require.Equal(t, fiber.StatusCreated, res.Status, res.Body)

	res = env.do("POST", "/api/v1/reviews", tok, map[string]interface{}{"booking_id": bookingID, "rating": 4})
	assert.Equal(t, fiber.StatusConflict, res.Status)
	assert.Equal(t, "REVIEW_EXISTS", res.code())

	res = env.do("GET", "/api/v1/listings/event/"+ev.ID.String()+"/reviews", "", nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Len(t, res.data()["items"], 1)

	res = env.do("GET", "/api/v1/listings/event/"+ev.ID.String(), "", nil)
	assert.Equal(t, float64(4), res.data()["average_rating"])
	assert.Equal(t, float64(1), res.data()["total_reviews"])
}

func TestSavedAndProfile(t *testing.T) {
	env := setupRouterTest(t)
	ev := testutil.Event(t, env.db, 10)
	tok := env.token(uuid.New(), constants.Traveler)

	res := env.do("POST", "/api/v1/saved", tok, map[string]string{"item_type": "events", "item_id": ev.ID.String()})
	require.Equal(t, fiber.StatusCreated, res.Status, res.Body)
	res = env.do("POST", "/api/v1/saved", tok, map[string]string{"item_type": "events", "item_id": ev.ID.String()})
	assert.Equal(t, "ALREADY_SAVED", res.code())

	res = env.do("GET", "/api/v1/saved?type=event", tok, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Len(t, res.data()["items"], 1)

	res = env.do("GET", "/api/v1/profile", tok, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, "traveler@example.com", res.data()["email"])

	res = env.do("PUT", "/api/v1/profile", tok, map[string]string{"full_name": "kofi  mensah", "home_country": "Ghana"})
	require.Equal(t, fiber.StatusOK, res.Status, res.Body)
	assert.Equal(t, "Kofi Mensah", res.data()["full_name"])

	res = env.do("PUT", "/api/v1/profile", tok, map[string]string{"phone": "call me"})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
}

func TestHealthEndpoints(t *testing.T) {
	env := setupRouterTest(t)
	env.do("GET", "/api/v1/listings/event", "", nil)

	res := env.do("GET", "/health/json", "", nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, "diasporan-api", res.Body["service"])
	assert.Equal(t, "ok", res.Body["status"])

	res = env.do("GET", "/reset?key=wrong", "", nil)
	assert.Equal(t, fiber.StatusForbidden, res.Status)
	res = env.do("GET", "/reset?key=health-key", "", nil)
	assert.Equal(t, fiber.StatusOK, res.Status)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := env.app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
