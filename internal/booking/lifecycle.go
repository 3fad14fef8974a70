package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/ledger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/queue"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// assignLeaseTTL bounds how long a stalled assignment can block the booking.
const assignLeaseTTL = 2 * time.Minute

// Assignment binds physical rooms to one room type line of a booking.
type Assignment struct {
	RoomType string
	RoomIDs  []string
}

// validateAssignments checks counts against the booked lines and returns
// the submitted ids per room type.
func validateAssignments(b model.Booking, assignments []Assignment) (map[string][]string, error) {
	byType := make(map[string][]string, len(assignments))
	for _, a := range assignments {
		rt := model.NormalizeRoomType(a.RoomType)
		byType[rt] = append(byType[rt], a.RoomIDs...)
	}
	booked := make(map[string]bool, len(b.RoomTypeBookings))
	for _, rtb := range b.RoomTypeBookings {
		booked[rtb.RoomType] = true
		if got := len(byType[rtb.RoomType]); got != rtb.NumberOfRooms {
			return nil, fmt.Errorf("%w: %s needs %d room(s), got %d",
				repository.ErrValidation, rtb.RoomType, rtb.NumberOfRooms, got)
		}
	}
	for rt := range byType {
		if !booked[rt] {
			return nil, fmt.Errorf("%w: booking has no %s rooms", repository.ErrValidation, rt)
		}
	}
	return byType, nil
}

// AssignRooms binds rooms to a CONFIRMED booking and checks it in.  Every
// submitted room is validated before anything changes.  The booking is then
// leased so no cancel or second assign can claim it midway; the ledger, the
// room statuses and finally the booking status are written, and a failure
// at any step reverses the earlier ones.
func (s *Service) AssignRooms(ctx context.Context, ref string, assignments []Assignment, actor string) (model.Booking, error) {
	b, err := s.resolve(ctx, ref)
	if err != nil {
		return model.Booking{}, err
	}
	if b.BookingStatus != model.BookingConfirmed {
		return model.Booking{}, fmt.Errorf("%w: booking %s is %s, rooms can only be assigned to CONFIRMED bookings",
			repository.ErrValidation, b.BookingNumber, b.BookingStatus)
	}
	byType, err := validateAssignments(b, assignments)
	if err != nil {
		return model.Booking{}, err
	}

	var all []string
	taken := make(map[string]bool)
	lines := make([]model.RoomTypeBooking, 0, len(b.RoomTypeBookings))
	for _, rtb := range b.RoomTypeBookings {
		ids := byType[rtb.RoomType]
		for _, id := range ids {
			if taken[id] {
				return model.Booking{}, fmt.Errorf("%w: room %s submitted more than once", repository.ErrValidation, id)
			}
			taken[id] = true
		}
		if _, err := s.catalog.RoomsMatching(ctx, b.HotelID, rtb.RoomType, ids, model.RoomAvailable); err != nil {
			return model.Booking{}, err
		}
		rtb.RoomIDs = append([]string(nil), ids...)
		lines = append(lines, rtb)
		all = append(all, ids...)
	}

	log := s.log.With(zap.String("booking_id", b.ID), zap.String("booking_number", b.BookingNumber))
	lease := model.AssignmentLease{Token: uuid.NewString(), Until: s.now().Add(assignLeaseTTL)}
	if err := s.bookings.ClaimAssignment(ctx, b.ID, lease, s.now()); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return model.Booking{}, s.staleStatus(ctx, b.ID, model.BookingConfirmed)
		}
		return model.Booking{}, err
	}
	undoLease := func() {
		cctx, cancel := detached(ctx)
		defer cancel()
		if err := s.bookings.ClearAssignment(cctx, b.ID, lease.Token); err != nil {
			log.Error("assignment compensation: lease not cleared", zap.Error(err))
		}
	}

	stay := ledger.StayOf(b)
	if err := s.ledger.ConfirmStay(ctx, stay); err != nil {
		undoLease()
		return model.Booking{}, err
	}
	undoLedger := func() {
		cctx, cancel := detached(ctx)
		defer cancel()
		if err := s.ledger.RevertStay(cctx, stay); err != nil {
			log.Error("assignment compensation: ledger revert incomplete", zap.Error(err))
		}
	}

	// SetStatus undoes its own partial work, so only the ledger and the
	// lease need reverting when it fails.
	if err := s.catalog.SetStatus(ctx, all, model.RoomAvailable, model.RoomOccupied); err != nil {
		undoLedger()
		undoLease()
		return model.Booking{}, err
	}
	undoRooms := func() {
		cctx, cancel := detached(ctx)
		defer cancel()
		if err := s.catalog.Vacate(cctx, all); err != nil {
			log.Error("assignment compensation: room status revert failed", zap.Error(err))
		}
	}

	now := s.now()
	updated, err := s.bookings.TransitionBooking(ctx, b.ID, model.BookingConfirmed, model.BookingTransition{
		To:               model.BookingCheckedIn,
		RoomTypeBookings: lines,
		RoomIDs:          all,
		CheckInTime:      &now,
		UpdatedBy:        actor,
		At:               now,
		LeaseToken:       lease.Token,
	})
	if err != nil {
		undoRooms()
		undoLedger()
		undoLease()
		if errors.Is(err, repository.ErrStaleState) {
			return model.Booking{}, fmt.Errorf("%w: booking %s changed during assignment", repository.ErrRaceCondition, b.BookingNumber)
		}
		return model.Booking{}, err
	}

	log.Info("rooms assigned", zap.Strings("room_ids", all))
	s.publish(ctx, queue.EventRoomsAssigned, updated)
	return updated, nil
}

// CancelBooking cancels a CONFIRMED or CHECKED_IN booking.  The status
// change is claimed first so only one caller ever releases the inventory.
// A booking whose rooms are being assigned cannot be cancelled until the
// assignment finishes or its lease runs out.
func (s *Service) CancelBooking(ctx context.Context, ref, actor string) (bool, error) {
	b, err := s.resolve(ctx, ref)
	if err != nil {
		return false, err
	}
	if !model.CanTransition(b.BookingStatus, model.BookingCancelled) {
		return false, transitionError(b, model.BookingCancelled)
	}
	now := s.now()
	updated, err := s.bookings.TransitionBooking(ctx, b.ID, b.BookingStatus, model.BookingTransition{
		To:        model.BookingCancelled,
		UpdatedBy: actor,
		At:        now,
	})
	if errors.Is(err, repository.ErrStaleState) {
		return false, s.staleStatus(ctx, b.ID, b.BookingStatus)
	}
	if err != nil {
		return false, err
	}

	log := s.log.With(zap.String("booking_id", b.ID), zap.String("booking_number", b.BookingNumber))
	from := model.BucketLocked
	if b.BookingStatus == model.BookingCheckedIn {
		from = model.BucketBooked
	}
	cctx, cancel := detached(ctx)
	defer cancel()
	if err := s.ledger.ReleaseStay(cctx, ledger.StayOf(b), from); err != nil {
		if !ledger.OnlyInconsistencies(err) {
			log.Error("cancelled booking inventory release failed", zap.Error(err))
			return false, fmt.Errorf("booking %s cancelled but inventory release failed: %w", b.BookingNumber, err)
		}
		log.Warn("cancelled booking released with inconsistencies", zap.Error(err))
	}
	if err := s.catalog.Vacate(cctx, b.RoomIDs); err != nil {
		if !errors.Is(err, repository.ErrLedgerInconsistency) {
			log.Error("cancelled booking room release failed", zap.Error(err))
			return false, fmt.Errorf("booking %s cancelled but rooms not released: %w", b.BookingNumber, err)
		}
		log.Warn("cancelled booking rooms released with inconsistencies", zap.Error(err))
	}

	log.Info("booking cancelled", zap.String("previous_status", string(b.BookingStatus)))
	s.publish(ctx, queue.EventBookingCanceled, updated)
	return true, nil
}

// CheckoutBooking completes a CHECKED_IN stay.  The booked nights stay
// consumed; only the rooms go back to available.
func (s *Service) CheckoutBooking(ctx context.Context, ref, actor string) (bool, error) {
	b, err := s.resolve(ctx, ref)
	if err != nil {
		return false, err
	}
	if !model.CanTransition(b.BookingStatus, model.BookingCheckedOut) {
		return false, transitionError(b, model.BookingCheckedOut)
	}
	now := s.now()
	updated, err := s.bookings.TransitionBooking(ctx, b.ID, model.BookingCheckedIn, model.BookingTransition{
		To:           model.BookingCheckedOut,
		CheckOutTime: &now,
		UpdatedBy:    actor,
		At:           now,
	})
	if errors.Is(err, repository.ErrStaleState) {
		return false, s.staleStatus(ctx, b.ID, model.BookingCheckedIn)
	}
	if err != nil {
		return false, err
	}

	cctx, cancel := detached(ctx)
	defer cancel()
	if err := s.catalog.Vacate(cctx, b.RoomIDs); err != nil {
		if !errors.Is(err, repository.ErrLedgerInconsistency) {
			s.log.Error("checked out booking room release failed", zap.String("booking_id", b.ID), zap.Error(err))
			return false, fmt.Errorf("booking %s checked out but rooms not released: %w", b.BookingNumber, err)
		}
		s.log.Warn("checked out booking rooms released with inconsistencies", zap.String("booking_id", b.ID), zap.Error(err))
	}
	s.log.Info("booking checked out", zap.String("booking_id", b.ID), zap.String("booking_number", b.BookingNumber))
	s.publish(ctx, queue.EventCheckedOut, updated)
	return true, nil
}
