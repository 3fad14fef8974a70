// Package booking implements the booking state machine.  Every operation
// that touches the ledger over several nights is a compensation boundary:
// when a later step fails, the steps already applied in the same call are
// reversed before the original error is returned.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/catalog"
	"github.com/iliyamo/hotel-inventory-ledger/internal/ledger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/queue"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// Publisher emits booking lifecycle events.  Publishing happens after the
// change is stored and a failure never fails the operation.
type Publisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

type Service struct {
	bookings  repository.BookingStore
	ledger    *ledger.Ledger
	catalog   *catalog.Catalog
	events    Publisher
	log       *zap.Logger
	now       func() time.Time
	newNumber func(time.Time) string
}

// New wires the state machine.  events may be nil.
func New(bookings repository.BookingStore, led *ledger.Ledger, cat *catalog.Catalog, events Publisher, log *zap.Logger) *Service {
	if bookings == nil || led == nil || cat == nil {
		panic("booking.New: nil dependency")
	}
	return &Service{
		bookings:  bookings,
		ledger:    led,
		catalog:   cat,
		events:    events,
		log:       logger.OrNop(log),
		now:       func() time.Time { return time.Now().UTC() },
		newNumber: NewBookingNumber,
	}
}

// detached returns a context for clean-up work that must run even when the
// request context is done.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

func (s *Service) publish(ctx context.Context, eventType string, b model.Booking) {
	if s.events == nil {
		return
	}
	ev := queue.NewBookingEvent(eventType, b, s.now())
	if err := s.events.PublishBookingEvent(ctx, ev); err != nil {
		s.log.Warn("booking event not published",
			zap.String("type", eventType), zap.String("booking_id", b.ID), zap.Error(err))
	}
}

// resolve finds a booking by ID, falling back to its booking number.
func (s *Service) resolve(ctx context.Context, ref string) (model.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		b, err = s.bookings.GetBookingByNumber(ctx, ref)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, fmt.Errorf("%w: booking %s", repository.ErrNotFound, ref)
	}
	return b, err
}

// staleStatus explains a conditional write that lost to a concurrent change.
// A booking still in the wanted status was held by an assignment lease.
func (s *Service) staleStatus(ctx context.Context, id string, want model.BookingStatus) error {
	current, err := s.bookings.GetBooking(ctx, id)
	if err != nil || current.BookingStatus == want {
		return fmt.Errorf("%w: booking %s changed concurrently", repository.ErrRaceCondition, id)
	}
	return fmt.Errorf("%w: booking %s is %s, not %s", repository.ErrValidation, id, current.BookingStatus, want)
}

func transitionError(b model.Booking, to model.BookingStatus) error {
	return fmt.Errorf("%w: booking %s cannot move from %s to %s",
		repository.ErrValidation, b.BookingNumber, b.BookingStatus, to)
}
