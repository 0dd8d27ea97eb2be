package bookings

import (
	"context"
	"fmt"
	"time"

	"diasporan-backend/internal/application/notifications"
	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/infrastructure/database"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB       *gorm.DB
	Notifier notifications.Sender
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) Validator() *Validator {
	return &Validator{DB: s.DB, Now: s.Now}
}

// UpdateInput is a partial booking change; nil fields are left alone.
type UpdateInput struct {
	Guests          *int
	StartDate       *time.Time
	EndDate         *time.Time
	SpecialRequests *string
}

// ListFilter narrows a user's booking history.
type ListFilter struct {
	Status *domain.BookingStatus
	Type   *domain.BookingType
}

// CreateBooking validates the request, then reserves capacity and inserts the booking
// in one transaction. A lost race aborts the whole unit with the shortfall code.
func (s *Service) CreateBooking(ctx context.Context, userID uuid.UUID, email string, in CreateInput) (*domain.Booking, error) {
	req, err := s.Validator().ValidateBooking(ctx, in)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		BookingType:     req.Input.BookingType,
		ReferenceID:     req.Listing.ID,
		UserID:          userID,
		ContactEmail:    email,
		StartDate:       req.Input.StartDate,
		EndDate:         req.Input.EndDate,
		Guests:          req.Input.Guests,
		TicketType:      req.Input.TicketType,
		Status:          req.Status,
		TotalPrice:      req.TotalPrice,
		Currency:        req.Listing.Currency,
		SpecialRequests: req.Input.SpecialRequests,
	}
	quantity := req.Input.Guests
	if req.Listing.Type == domain.ListingAccommodation {
		quantity = 1
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reserve(tx, req.Listing, quantity, req.Dates, uuid.Nil); err != nil {
			return err
		}
		return tx.Create(booking).Error
	})
	if err != nil {
		return nil, database.Classify(err)
	}

	log.Info().Str("booking_id", booking.ID.String()).Str("listing_id", booking.ReferenceID.String()).
		Str("type", string(booking.BookingType)).Int("guests", booking.Guests).Msg("Booking created")
	s.notify(ctx, booking, req.Listing, false)
	return booking, nil
}

// GetBooking returns one of the user's bookings. Other users' bookings are reported
// as not found.
func (s *Service) GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", bookingID, userID).First(&b).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound(apperror.CodeNotFound, "Booking not found")
		}
		return nil, database.Classify(err)
	}
	return &b, nil
}

func (s *Service) ListUserBookings(ctx context.Context, userID uuid.UUID, f ListFilter, p pagination.Params) ([]domain.Booking, pagination.Meta, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Booking{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Type != nil {
		q = q.Where("booking_type = ?", *f.Type)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, database.Classify(err)
	}
	items := make([]domain.Booking, 0, p.Limit)
	if err := q.Order("start_date DESC").Order("id ASC").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, pagination.Meta{}, database.Classify(err)
	}
	return items, p.Meta(total), nil
}

// CancelBooking cancels one of the user's active bookings and restores its capacity.
// Cancelling a completed or cancelled booking is an invalid state transition.
func (s *Service) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = ownedForUpdate(tx, bookingID, userID)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return apperror.InvalidState(fmt.Sprintf("Booking is already %s", b.Status))
		}
		return cancelTx(tx, b, reason, domain.CancelledByUser, s.now())
	})
	if err != nil {
		return nil, database.Classify(err)
	}
	s.notifyCancelled(ctx, []domain.Booking{*b})
	return b, nil
}

// UpdateBooking applies a partial change. Guest and date changes go through the same
// rules and capacity guard as creation; a smaller party gives the difference back.
func (s *Service) UpdateBooking(ctx context.Context, bookingID, userID uuid.UUID, patch UpdateInput) (*domain.Booking, error) {
	var b *domain.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = ownedForUpdate(tx, bookingID, userID)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return apperror.InvalidState(fmt.Sprintf("A %s booking cannot be changed", b.Status))
		}
		if patch.SpecialRequests != nil {
			b.SpecialRequests = *patch.SpecialRequests
		}
		if patch.Guests != nil || patch.StartDate != nil || patch.EndDate != nil {
			if err := s.applyCapacityChange(tx, b, patch); err != nil {
				return err
			}
		}
		return tx.Save(b).Error
	})
	if err != nil {
		return nil, database.Classify(err)
	}
	return b, nil
}

func (s *Service) applyCapacityChange(tx *gorm.DB, b *domain.Booking, patch UpdateInput) error {
	var l domain.Listing
	if err := tx.Unscoped().Where("id = ?", b.ReferenceID).First(&l).Error; err != nil {
		return err
	}
	in := CreateInput{
		BookingType: b.BookingType,
		ReferenceID: b.ReferenceID,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		Guests:      b.Guests,
		TicketType:  b.TicketType,
	}
	if patch.Guests != nil {
		in.Guests = *patch.Guests
	}
	if patch.StartDate != nil {
		in.StartDate = patch.StartDate.UTC()
	}
	if patch.EndDate != nil {
		end := patch.EndDate.UTC()
		in.EndDate = &end
	}
	req, err := applyRules(&l, in, s.now())
	if err != nil {
		return err
	}

	switch l.Type {
	case domain.ListingEvent, domain.ListingTransport, domain.ListingFlight:
		delta := req.Input.Guests - b.Guests
		if delta > 0 {
			if err := reserve(tx, &l, delta, nil, b.ID); err != nil {
				return err
			}
		} else if delta < 0 {
			if err := release(tx, l.Type, l.ID, -delta); err != nil {
				return err
			}
		}
	case domain.ListingAccommodation:
		if patch.StartDate != nil || patch.EndDate != nil {
			if err := reserve(tx, &l, 1, req.Dates, b.ID); err != nil {
				return err
			}
		}
	case domain.ListingDining:
		return apperror.NotImplemented("dining bookings are not supported yet")
	}

	b.Guests = req.Input.Guests
	b.StartDate = req.Input.StartDate
	b.EndDate = req.Input.EndDate
	b.TotalPrice = req.TotalPrice
	return nil
}

// TransitionBooking moves any booking forward in its lifecycle on behalf of an admin.
// Completion and cancellation both give capacity back.
func (s *Service) TransitionBooking(ctx context.Context, bookingID uuid.UUID, next domain.BookingStatus) (*domain.Booking, error) {
	var b domain.Booking
	cancelled := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", bookingID).First(&b).Error; err != nil {
			if database.IsNotFound(err) {
				return apperror.NotFound(apperror.CodeNotFound, "Booking not found")
			}
			return err
		}
		if !b.Status.CanTransition(next) {
			return apperror.InvalidState(fmt.Sprintf("Booking cannot move from %s to %s", b.Status, next))
		}
		switch next {
		case domain.BookingCancelled:
			cancelled = true
			return cancelTx(tx, &b, "", domain.CancelledByAdmin, s.now())
		case domain.BookingCompleted:
			if err := setStatus(tx, &b, domain.BookingConfirmed, next); err != nil {
				return err
			}
			return release(tx, b.BookingType.ListingType(), b.ReferenceID, capacityUnits(&b))
		case domain.BookingConfirmed:
			return setStatus(tx, &b, domain.BookingPending, next)
		}
		return apperror.InvalidState(fmt.Sprintf("Booking cannot move to %s", next))
	})
	if err != nil {
		return nil, database.Classify(err)
	}
	if cancelled {
		s.notifyCancelled(ctx, []domain.Booking{b})
	}
	return &b, nil
}

// OnListingDeleted cancels every active booking on the deleted listing that has not
// started yet. It runs inside the soft-delete transaction; the returned hook sends
// cancellation notices and must only be called after commit.
func (s *Service) OnListingDeleted(ctx context.Context, tx *gorm.DB, evt domain.ListingDeleted) (func(context.Context), error) {
	var affected []domain.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference_id = ? AND booking_type = ?", evt.ListingID, domain.BookingTypeFor(evt.Type)).
		Where("status IN ? AND start_date >= ?", domain.ActiveStatuses, evt.At.UTC()).
		Find(&affected).Error
	if err != nil {
		return nil, err
	}
	for i := range affected {
		if err := cancelTx(tx, &affected[i], domain.ReasonListingRemoved, domain.CancelledBySystem, evt.At.UTC()); err != nil {
			return nil, err
		}
	}
	log.Info().Str("listing_id", evt.ListingID.String()).Int("cancelled", len(affected)).Msg("Cascaded listing deletion to bookings")
	return func(ctx context.Context) { s.notifyCancelled(ctx, affected) }, nil
}

func ownedForUpdate(tx *gorm.DB, bookingID, userID uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", bookingID, userID).
		First(&b).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound(apperror.CodeNotFound, "Booking not found")
		}
		return nil, err
	}
	return &b, nil
}

// cancelTx flips an active booking to cancelled and restores its capacity. The status
// guard in the UPDATE makes the restore happen at most once per booking.
func cancelTx(tx *gorm.DB, b *domain.Booking, reason, by string, at time.Time) error {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	res := tx.Model(&domain.Booking{}).
		Where("id = ? AND status IN ?", b.ID, domain.ActiveStatuses).
		Updates(map[string]interface{}{
			"status":              domain.BookingCancelled,
			"cancellation_reason": reasonPtr,
			"cancelled_by":        by,
			"cancelled_at":        at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.InvalidState("Booking is no longer active")
	}
	if err := release(tx, b.BookingType.ListingType(), b.ReferenceID, capacityUnits(b)); err != nil {
		return err
	}
	b.Status = domain.BookingCancelled
	b.CancellationReason = reasonPtr
	b.CancelledBy = &by
	b.CancelledAt = &at
	return nil
}

func setStatus(tx *gorm.DB, b *domain.Booking, from, to domain.BookingStatus) error {
	res := tx.Model(&domain.Booking{}).Where("id = ? AND status = ?", b.ID, from).Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.InvalidState(fmt.Sprintf("Booking is no longer %s", from))
	}
	b.Status = to
	return nil
}

// capacityUnits is what a booking holds on its listing's counter.
func capacityUnits(b *domain.Booking) int {
	if b.BookingType == domain.BookingAccommodation {
		return 0
	}
	return b.Guests
}

func (s *Service) notify(ctx context.Context, b *domain.Booking, l *domain.Listing, cancelled bool) {
	if s.Notifier == nil || b.ContactEmail == "" {
		return
	}
	booking, listing := *b, *l
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 20*time.Second)
		defer cancel()
		var err error
		if cancelled {
			err = s.Notifier.SendBookingCancelled(ctx, &booking, &listing)
		} else {
			err = s.Notifier.SendBookingConfirmation(ctx, &booking, &listing)
		}
		if err != nil {
			log.Warn().Err(err).Str("booking_id", booking.ID.String()).Msg("Booking email failed")
		}
	}()
}

func (s *Service) notifyCancelled(ctx context.Context, bookings []domain.Booking) {
	if s.Notifier == nil {
		return
	}
	for i := range bookings {
		b := &bookings[i]
		if b.ContactEmail == "" {
			continue
		}
		var l domain.Listing
		if err := s.DB.WithContext(ctx).Unscoped().Where("id = ?", b.ReferenceID).First(&l).Error; err != nil {
			log.Warn().Err(err).Str("booking_id", b.ID.String()).Msg("Cancellation email skipped")
			continue
		}
		s.notify(ctx, b, &l, true)
	}
}
