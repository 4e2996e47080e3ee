package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/queue"
	"github.com/iliyamo/student-housing-api/internal/repository"
)

// CreateBookingParams is a student's booking request.
type CreateBookingParams struct {
	PropertyID     bson.ObjectID
	MoveInDate     time.Time
	DurationMonths int
	PaymentMethod  model.PaymentMethod
	Notes          string
}

// BookingService manages bookings and keeps listing room counts in step.
type BookingService struct {
	bookings repository.BookingRepository
	listings repository.ListingRepository
	users    repository.UserRepository
	tx       repository.Transactor
	events   EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewBookingService wires the booking module.
func NewBookingService(
	bookings repository.BookingRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	events EventPublisher,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		listings: listings,
		users:    users,
		tx:       tx,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Create books a room of an active listing.  Rooms are only taken once the
// owner confirms.
func (s *BookingService) Create(ctx context.Context, actor Actor, params CreateBookingParams) (*model.Booking, error) {
	if actor.Role != model.RoleStudent {
		return nil, ErrForbidden
	}
	if params.DurationMonths < 1 {
		return nil, invalid("durationMonths", "durationMonths must be at least 1")
	}
	if params.MoveInDate.Before(truncateDay(s.now().UTC())) {
		return nil, invalid("moveInDate", "moveInDate cannot be in the past")
	}
	method := params.PaymentMethod
	if method == "" {
		method = model.PaymentCash
	}
	if !validPaymentMethod(method) {
		return nil, invalid("paymentMethod", "paymentMethod must be one of cash bank_transfer card mobile_money")
	}

	listing, err := s.listings.GetByID(ctx, params.PropertyID)
	if err != nil {
		return nil, err
	}
	if listing.Status != model.ListingActive {
		return nil, ErrListingUnavailable
	}
	if listing.FullyBooked() {
		return nil, ErrNoRoomsAvailable
	}
	if listing.Owner == actor.ID {
		return nil, ErrForbidden
	}

	booking := &model.Booking{
		Property:       listing.ID,
		Student:        actor.ID,
		Owner:          listing.Owner,
		MoveInDate:     params.MoveInDate.UTC(),
		DurationMonths: params.DurationMonths,
		TotalAmount:    listing.MonthlyRent * float64(params.DurationMonths),
		Status:         model.BookingPending,
		PaymentMethod:  method,
		PaymentStatus:  model.PaymentPending,
		Notes:          params.Notes,
	}
	return s.bookings.Create(ctx, booking)
}

// List returns the caller's bookings: as student or as listing owner.
func (s *BookingService) List(ctx context.Context, actor Actor, status model.BookingStatus) ([]*model.Booking, error) {
	filter := repository.BookingFilter{Status: status}
	id := actor.ID
	if actor.Role == model.RoleOwner {
		filter.Owner = &id
	} else {
		filter.Student = &id
	}
	return s.bookings.List(ctx, filter)
}

// Get returns one booking visible to the caller.
func (s *BookingService) Get(ctx context.Context, actor Actor, id bson.ObjectID) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Student != actor.ID && b.Owner != actor.ID {
		return nil, ErrForbidden
	}
	return b, nil
}

// UpdateStatus moves a booking along pending -> confirmed -> completed, or
// to cancelled.  Owners drive every step; students may only cancel their
// own pending booking.
func (s *BookingService) UpdateStatus(ctx context.Context, actor Actor, id bson.ObjectID, next model.BookingStatus) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.ID {
	case b.Owner:
		if !ownerMayMove(b.Status, next) {
			return nil, ErrInvalidTransition
		}
	case b.Student:
		if b.Status != model.BookingPending || next != model.BookingCancelled {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	params := repository.UpdateBookingParams{Status: &next}
	if next == model.BookingCancelled && b.PaymentStatus == model.PaymentPaid {
		refunded := model.PaymentRefunded
		params.PaymentStatus = &refunded
	}
	return s.apply(ctx, b, params)
}

// ConfirmPayment records the owner receiving payment.  A pending booking is
// confirmed at the same time.
func (s *BookingService) ConfirmPayment(ctx context.Context, actor Actor, id bson.ObjectID) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Owner != actor.ID {
		return nil, ErrForbidden
	}
	if b.PaymentStatus != model.PaymentPending {
		return nil, ErrConflict
	}
	if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
		return nil, ErrInvalidTransition
	}

	paid := model.PaymentPaid
	paidAt := s.now().UTC()
	params := repository.UpdateBookingParams{PaymentStatus: &paid, PaidAt: &paidAt}
	if b.Status == model.BookingPending {
		confirmed := model.BookingConfirmed
		params.Status = &confirmed
	}
	return s.apply(ctx, b, params)
}

// apply writes params conditional on b's current status and adjusts the
// listing's free rooms in the same transaction when the booking enters or
// leaves confirmed.  A room is claimed before the booking is confirmed and
// handed back if the booking write loses, so the guarded counter alone keeps
// the listing from being overbooked when transactions are unavailable.
func (s *BookingService) apply(ctx context.Context, b *model.Booking, params repository.UpdateBookingParams) (*model.Booking, error) {
	delta := 0
	if params.Status != nil {
		switch {
		case *params.Status == model.BookingConfirmed && b.Status != model.BookingConfirmed:
			delta = -1
		case *params.Status == model.BookingCancelled && b.Status == model.BookingConfirmed:
			delta = 1
		}
	}

	var updated *model.Booking
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if delta < 0 {
			if err := s.listings.AdjustAvailableRooms(ctx, b.Property, delta); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return ErrNoRoomsAvailable
				}
				return err
			}
		}

		var err error
		updated, err = s.bookings.Update(ctx, b.ID, b.Status, params)
		if err != nil {
			if delta < 0 {
				s.releaseRoom(ctx, b)
			}
			return err
		}

		if delta > 0 {
			return s.listings.AdjustAvailableRooms(ctx, b.Property, delta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if delta < 0 {
		s.publishConfirmed(ctx, updated)
	}
	return updated, nil
}

func (s *BookingService) releaseRoom(ctx context.Context, b *model.Booking) {
	if err := s.listings.AdjustAvailableRooms(ctx, b.Property, 1); err != nil {
		s.logger.Error().Err(err).
			Str("booking_id", b.ID.Hex()).
			Str("listing_id", b.Property.Hex()).
			Msg("failed to release claimed room")
	}
}

func (s *BookingService) publishConfirmed(ctx context.Context, b *model.Booking) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := queue.BookingConfirmedEvent{
		BookingID:      b.ID.Hex(),
		PropertyID:     b.Property.Hex(),
		StudentID:      b.Student.Hex(),
		OwnerID:        b.Owner.Hex(),
		MoveInDate:     b.MoveInDate.Format(time.DateOnly),
		DurationMonths: b.DurationMonths,
		TotalAmount:    b.TotalAmount,
		PaymentStatus:  string(b.PaymentStatus),
		ConfirmedAt:    b.UpdatedAt,
	}
	if listing, err := s.listings.GetByID(ctx, b.Property); err == nil {
		ev.PropertyTitle = listing.Title
	}
	if student, err := s.users.GetByID(ctx, b.Student); err == nil {
		ev.StudentEmail = student.Email
	}

	if err := s.events.Publish(ctx, queue.BookingConfirmedKey, ev); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", ev.BookingID).Msg("failed to publish booking event")
	}
}

func ownerMayMove(from, to model.BookingStatus) bool {
	switch from {
	case model.BookingPending:
		return to == model.BookingConfirmed || to == model.BookingCancelled
	case model.BookingConfirmed:
		return to == model.BookingCompleted || to == model.BookingCancelled
	}
	return false
}

func validPaymentMethod(m model.PaymentMethod) bool {
	switch m {
	case model.PaymentCash, model.PaymentBankTransfer, model.PaymentCard, model.PaymentMobileMoney:
		return true
	}
	return false
}
