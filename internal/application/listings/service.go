package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/infrastructure/database"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeletionSubscriber reacts to a listing being soft-deleted. It runs inside the delete
// transaction, so a returned error aborts the deletion. The returned hook, if any, runs
// after commit.
type DeletionSubscriber interface {
	OnListingDeleted(ctx context.Context, tx *gorm.DB, evt domain.ListingDeleted) (func(context.Context), error)
}

type Service struct {
	DB          *gorm.DB
	Subscribers []DeletionSubscriber
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Subscribe registers a deletion subscriber. Call it before serving requests.
func (s *Service) Subscribe(sub DeletionSubscriber) {
	s.Subscribers = append(s.Subscribers, sub)
}

// Input carries listing fields from the admin API. Nil fields are left unchanged on
// update and zero on create.
type Input struct {
	Title          *string              `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string              `json:"description"`
	City           *string              `json:"city"`
	Country        *string              `json:"country"`
	Category       *string              `json:"category"`
	Provider       *string              `json:"provider"`
	Address        *string              `json:"address"`
	Origin         *string              `json:"origin"`
	Destination    *string              `json:"destination"`
	DepartureTime  *time.Time           `json:"departure_time"`
	ArrivalTime    *time.Time           `json:"arrival_time"`
	EventDate      *time.Time           `json:"event_date"`
	Price          *float64             `json:"price" validate:"omitempty,gte=0"`
	Currency       *string              `json:"currency" validate:"omitempty,len=3"`
	AvailableSeats *int                 `json:"available_seats" validate:"omitempty,gte=0"`
	MaxGuests      *int                 `json:"max_guests" validate:"omitempty,gte=0"`
	Units          *int                 `json:"units" validate:"omitempty,gte=1"`
	AvailableSpots *int                 `json:"available_spots" validate:"omitempty,gte=0"`
	TicketTiers    *[]domain.TicketTier `json:"ticket_tiers"`
	Departures     *[]time.Time         `json:"departures"`
	Amenities      *[]string            `json:"amenities"`
	Images         *[]string            `json:"images"`
}

// apply copies the set fields onto l and returns their names.
func (in Input) apply(l *domain.Listing) []string {
	var changed []string
	setStr := func(name string, dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			changed = append(changed, name)
		}
	}
	setTime := func(name string, dst **time.Time, v *time.Time) {
		if v != nil {
			t := v.UTC()
			*dst = &t
			changed = append(changed, name)
		}
	}
	setInt := func(name string, dst *int, v *int) {
		if v != nil {
			*dst = *v
			changed = append(changed, name)
		}
	}

	setStr("title", &l.Title, in.Title)
	setStr("description", &l.Description, in.Description)
	setStr("city", &l.City, in.City)
	setStr("country", &l.Country, in.Country)
	setStr("category", &l.Category, in.Category)
	setStr("provider", &l.Provider, in.Provider)
	setStr("address", &l.Address, in.Address)
	setStr("origin", &l.Origin, in.Origin)
	setStr("destination", &l.Destination, in.Destination)
	setTime("departure_time", &l.DepartureTime, in.DepartureTime)
	setTime("arrival_time", &l.ArrivalTime, in.ArrivalTime)
	setTime("event_date", &l.EventDate, in.EventDate)
	if in.Price != nil {
		l.Price = *in.Price
		changed = append(changed, "price")
	}
	if in.Currency != nil {
		l.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
		changed = append(changed, "currency")
	}
	setInt("available_seats", &l.AvailableSeats, in.AvailableSeats)
	setInt("max_guests", &l.MaxGuests, in.MaxGuests)
	setInt("units", &l.Units, in.Units)
	setInt("available_spots", &l.AvailableSpots, in.AvailableSpots)
	if in.TicketTiers != nil {
		l.TicketTiers = *in.TicketTiers
		changed = append(changed, "ticket_tiers")
	}
	if in.Departures != nil {
		deps := make([]time.Time, len(*in.Departures))
		for i, d := range *in.Departures {
			deps[i] = d.UTC()
		}
		l.Departures = deps
		changed = append(changed, "departures")
	}
	if in.Amenities != nil {
		l.Amenities = *in.Amenities
		changed = append(changed, "amenities")
	}
	if in.Images != nil {
		l.Images = *in.Images
		changed = append(changed, "images")
	}
	return changed
}

func checkListing(l *domain.Listing) error {
	if l.Title == "" {
		return apperror.Validation(apperror.CodeValidation, "title is required")
	}
	if l.Price < 0 || l.AvailableSeats < 0 || l.AvailableSpots < 0 || l.MaxGuests < 0 {
		return apperror.Validation(apperror.CodeValidation, "price and capacity cannot be negative")
	}
	for _, t := range l.TicketTiers {
		if strings.TrimSpace(t.Name) == "" || t.Price < 0 {
			return apperror.Validation(apperror.CodeValidation, "ticket tiers need a name and a non-negative price")
		}
	}
	if l.DepartureTime != nil && l.ArrivalTime != nil && !l.DepartureTime.Before(*l.ArrivalTime) {
		return apperror.Validation(apperror.CodeInvalidDateRange, "departure_time must be before arrival_time")
	}
	return nil
}

func (s *Service) CreateListing(ctx context.Context, actorID uuid.UUID, lt domain.ListingType, in Input) (*domain.Listing, error) {
	listing := &domain.Listing{Type: lt, Currency: "USD"}
	in.apply(listing)
	if err := checkListing(listing); err != nil {
		return nil, err
	}
	if actorID != uuid.Nil {
		listing.CreatedBy = &actorID
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()
	if err := tx.Create(listing).Error; err != nil {
		tx.Rollback()
		return nil, database.Classify(err)
	}
	if err := recordEvent(tx, listing.ID, domain.ListingEventCreated, actorID, map[string]interface{}{
		"type":  listing.Type,
		"title": listing.Title,
		"price": listing.Price,
	}); err != nil {
		tx.Rollback()
		return nil, database.Classify(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, database.Classify(err)
	}
	log.Info().Str("listing_id", listing.ID.String()).Str("type", string(lt)).Msg("Listing created")
	return listing, nil
}

// UpdateListing applies a partial change to an active listing. lt must match the
// stored type. Deleted listings have to be restored before they can be edited.
func (s *Service) UpdateListing(ctx context.Context, actorID, id uuid.UUID, lt domain.ListingType, in Input) (*domain.Listing, error) {
	var listing domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockListing(tx, id, &listing); err != nil {
			return err
		}
		if listing.Type != lt {
			return apperror.Validation(apperror.CodeValidation, fmt.Sprintf("listing %s is a %s, not a %s", id, listing.Type, lt))
		}
		if listing.Deleted() {
			return apperror.InvalidState("Listing is deleted; restore it before editing")
		}
		changed := in.apply(&listing)
		if len(changed) == 0 {
			return apperror.Validation(apperror.CodeValidation, "no fields to update")
		}
		if err := checkListing(&listing); err != nil {
			return err
		}
		if err := tx.Save(&listing).Error; err != nil {
			return err
		}
		return recordEvent(tx, listing.ID, domain.ListingEventUpdated, actorID, map[string]interface{}{
			"changed": changed,
		})
	})
	if err != nil {
		return nil, database.Classify(err)
	}
	return &listing, nil
}

// SoftDeleteListing hides a listing and, in the same transaction, lets subscribers
// cancel what depends on it. Either everything commits or nothing does.
func (s *Service) SoftDeleteListing(ctx context.Context, actorID, id uuid.UUID) (*domain.Listing, error) {
	now := s.now()
	var listing domain.Listing
	var hooks []func(context.Context)

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()
	fail := func(err error) (*domain.Listing, error) {
		tx.Rollback()
		return nil, database.Classify(err)
	}

	if err := lockListing(tx, id, &listing); err != nil {
		return fail(err)
	}
	if listing.Deleted() {
		return fail(apperror.InvalidState("Listing is already deleted"))
	}

	evt := domain.ListingDeleted{ListingID: listing.ID, Type: listing.Type, At: now}
	for _, sub := range s.Subscribers {
		hook, err := sub.OnListingDeleted(ctx, tx, evt)
		if err != nil {
			return fail(err)
		}
		if hook != nil {
			hooks = append(hooks, hook)
		}
	}

	res := tx.Unscoped().Model(&domain.Listing{}).
		Where("id = ? AND deleted_at IS NULL", listing.ID).
		Update("deleted_at", now)
	if res.Error != nil {
		return fail(res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(apperror.InvalidState("Listing is already deleted"))
	}
	if err := recordEvent(tx, listing.ID, domain.ListingEventDeleted, actorID, map[string]interface{}{
		"type":       listing.Type,
		"deleted_at": now,
	}); err != nil {
		return fail(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, database.Classify(err)
	}

	listing.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
	log.Info().Str("listing_id", listing.ID.String()).Str("type", string(listing.Type)).Msg("Listing soft-deleted")
	for _, hook := range hooks {
		hook(ctx)
	}
	return &listing, nil
}

// RestoreListing makes a deleted listing visible again. Bookings cancelled by the
// deletion stay cancelled.
func (s *Service) RestoreListing(ctx context.Context, actorID, id uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockListing(tx, id, &listing); err != nil {
			return err
		}
		if !listing.Deleted() {
			return apperror.InvalidState("Listing is not deleted")
		}
		if err := tx.Unscoped().Model(&domain.Listing{}).Where("id = ?", id).Update("deleted_at", nil).Error; err != nil {
			return err
		}
		return recordEvent(tx, listing.ID, domain.ListingEventRestored, actorID, map[string]interface{}{
			"type":               listing.Type,
			"previously_deleted": listing.DeletedAt.Time,
		})
	})
	if err != nil {
		return nil, database.Classify(err)
	}
	listing.DeletedAt = gorm.DeletedAt{}
	log.Info().Str("listing_id", listing.ID.String()).Msg("Listing restored")
	return &listing, nil
}

// GetListing fetches one listing of the given type. Deleted listings are only
// returned when includeDeleted is set.
func (s *Service) GetListing(ctx context.Context, lt domain.ListingType, id uuid.UUID, includeDeleted bool) (*domain.Listing, error) {
	db := s.DB.WithContext(ctx)
	if includeDeleted {
		db = db.Unscoped()
	}
	var listing domain.Listing
	if err := db.Where("id = ? AND type = ?", id, lt).First(&listing).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound(apperror.CodeNotFound, "Listing not found")
		}
		return nil, database.Classify(err)
	}
	return &listing, nil
}

// FindListing fetches a listing of any type, including deleted ones.
func (s *Service) FindListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Unscoped().Where("id = ?", id).First(&listing).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound(apperror.CodeNotFound, "Listing not found")
		}
		return nil, database.Classify(err)
	}
	return &listing, nil
}

// ListResult is one page of listings.
type ListResult struct {
	Items      []domain.Listing `json:"items"`
	Pagination pagination.Meta  `json:"pagination"`
}

func (s *Service) ListListings(ctx context.Context, plan QueryPlan) (*ListResult, error) {
	db := s.DB.WithContext(ctx)
	var total int64
	if err := plan.Scope(db).Count(&total).Error; err != nil {
		return nil, database.Classify(err)
	}
	items := make([]domain.Listing, 0, plan.Page.Limit)
	if err := plan.Paged(db).Find(&items).Error; err != nil {
		return nil, database.Classify(err)
	}
	return &ListResult{Items: items, Pagination: plan.Page.Meta(total)}, nil
}

func lockListing(tx *gorm.DB, id uuid.UUID, out *domain.Listing) error {
	err := tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(out).Error
	if database.IsNotFound(err) {
		return apperror.NotFound(apperror.CodeNotFound, "Listing not found")
	}
	return err
}

func recordEvent(tx *gorm.DB, listingID uuid.UUID, eventType string, actorID uuid.UUID, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	evt := &domain.ListingEventRecord{
		ListingID: listingID,
		EventType: eventType,
		EventData: datatypes.JSON(payload),
	}
	if actorID != uuid.Nil {
		evt.ActorID = &actorID
	}
	return tx.Create(evt).Error
}
